package token

import "unicode"

type Type int

const (
	Punct Type = iota
	Ident
	LocalID
	GlobalID
	Number
	String
)

func (t Type) String() string {
	switch t {
	case Punct:
		return "punctuation"
	case Ident:
		return "identifier"
	case LocalID:
		return "local name"
	case GlobalID:
		return "global name"
	case Number:
		return "number"
	case String:
		return "string"
	}
	return "unknown"
}

type Token struct {
	Value string
	Type  Type
	Line  int
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-'
}

// Tokenize splits a .gir source into tokens. Comments run from ';' to
// end of line. Local names are prefixed '%', module-level names '@';
// the prefix is stripped from the token value.
func Tokenize(input string) []Token {
	var tokens []Token
	line := 1
	runes := []rune(input)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			line++
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}

		// Line comment
		if r == ';' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			line++
			continue
		}

		// String literal
		if r == '"' {
			start := i + 1
			i++
			for i < len(runes) && runes[i] != '"' {
				if runes[i] == '\\' {
					i++
				}
				i++
			}
			tokens = append(tokens, Token{string(runes[start:i]), String, line})
			continue
		}

		// Local and module-level names
		if r == '%' || r == '@' {
			typ := LocalID
			if r == '@' {
				typ = GlobalID
			}
			start := i + 1
			i++
			for i < len(runes) && isNameRune(runes[i]) {
				i++
			}
			tokens = append(tokens, Token{string(runes[start:i]), typ, line})
			i--
			continue
		}

		// Number (including negative)
		if unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])) {
			start := i
			if r == '-' {
				i++
			}
			for i < len(runes) {
				c := runes[i]
				if unicode.IsDigit(c) || c == '.' || c == 'e' || c == 'E' ||
					((c == '-' || c == '+') && (runes[i-1] == 'e' || runes[i-1] == 'E')) {
					i++
				} else {
					break
				}
			}
			tokens = append(tokens, Token{string(runes[start:i]), Number, line})
			i--
			continue
		}

		// Arrow
		if r == '-' && i+1 < len(runes) && runes[i+1] == '>' {
			tokens = append(tokens, Token{"->", Punct, line})
			i++
			continue
		}

		// Identifier or keyword
		if unicode.IsLetter(r) || r == '_' {
			start := i
			for i < len(runes) && isNameRune(runes[i]) {
				i++
			}
			tokens = append(tokens, Token{string(runes[start:i]), Ident, line})
			i--
			continue
		}

		// Single-rune punctuation
		switch r {
		case '(', ')', '{', '}', '[', ']', '<', '>', ',', ':', '=':
			tokens = append(tokens, Token{string(r), Punct, line})
		}
	}

	return tokens
}
