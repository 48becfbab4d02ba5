package parser

import (
	"strconv"

	"github.com/maqayum/grappa/errors"
	"github.com/maqayum/grappa/ir"
	"github.com/maqayum/grappa/irtext/internal/token"
)

// Parser turns a token stream into an ir.Module. Function signatures
// are registered in a first pass so call operands can reference
// functions defined later in the file; phi incoming values are
// resolved through a patch list after the containing body is parsed.
type Parser struct {
	mod    *ir.Module
	tokens []token.Token
	pos    int

	// per-function state
	fn     *ir.Function
	values map[string]ir.Value
	blocks map[string]*ir.Block
	phis   []phiPatch
}

type phiPatch struct {
	phi  *ir.Instr
	typ  ir.Type
	vals []operand
	bbs  []string
	line int
}

// operand is a parsed-but-unresolved operand. Literal tokens stay
// textual until a resolution site supplies the expected type; const
// expressions and already-known values resolve eagerly.
type operand struct {
	val  ir.Value
	text string
	typ  token.Type
	line int
}

func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

type pendingBody struct {
	fn  *ir.Function
	pos int
}

// Parse consumes the whole token stream and returns the module.
func (p *Parser) Parse() (*ir.Module, error) {
	if err := p.parseHeader(); err != nil {
		return nil, err
	}

	// First pass: register globals and function signatures, note where
	// each body starts.
	var bodies []pendingBody
	for p.peek() != nil {
		t, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		switch t.Value {
		case "global":
			if err := p.parseGlobal(); err != nil {
				return nil, err
			}
		case "declare":
			if _, err := p.parseFuncHeader(false); err != nil {
				return nil, err
			}
		case "func":
			fn, err := p.parseFuncHeader(true)
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("{"); err != nil {
				return nil, err
			}
			bodies = append(bodies, pendingBody{fn: fn, pos: p.pos})
			if err := p.skipBody(); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Syntax(t.Line, "expected global, declare or func, got %q", t.Value)
		}
	}

	// Second pass: parse bodies.
	for _, b := range bodies {
		p.pos = b.pos
		if err := p.parseBody(b.fn); err != nil {
			return nil, err
		}
	}
	return p.mod, nil
}

func (p *Parser) parseHeader() error {
	if _, err := p.expectKeyword("module"); err != nil {
		return err
	}
	name, err := p.expect(token.String)
	if err != nil {
		return err
	}
	if _, err := p.expectKeyword("format"); err != nil {
		return err
	}
	format, err := p.expect(token.String)
	if err != nil {
		return err
	}
	p.mod = &ir.Module{Name: name.Value, Format: format.Value}
	return nil
}

func (p *Parser) peek() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *Parser) next() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

func (p *Parser) line() int {
	if t := p.peek(); t != nil {
		return t.Line
	}
	if len(p.tokens) > 0 {
		return p.tokens[len(p.tokens)-1].Line
	}
	return 0
}

func (p *Parser) expect(typ token.Type) (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, errors.Syntax(p.line(), "unexpected end of input, expected %v", typ)
	}
	if t.Type != typ {
		return nil, errors.Syntax(t.Line, "expected %v, got %q", typ, t.Value)
	}
	return t, nil
}

func (p *Parser) expectPunct(v string) (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, errors.Syntax(p.line(), "unexpected end of input, expected %q", v)
	}
	if t.Type != token.Punct || t.Value != v {
		return nil, errors.Syntax(t.Line, "expected %q, got %q", v, t.Value)
	}
	return t, nil
}

func (p *Parser) expectKeyword(v string) (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, errors.Syntax(p.line(), "unexpected end of input, expected %q", v)
	}
	if t.Type != token.Ident || t.Value != v {
		return nil, errors.Syntax(t.Line, "expected %q, got %q", v, t.Value)
	}
	return t, nil
}

func (p *Parser) isPunct(v string) bool {
	t := p.peek()
	return t != nil && t.Type == token.Punct && t.Value == v
}

func (p *Parser) acceptPunct(v string) bool {
	if p.isPunct(v) {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) acceptKeyword(v string) bool {
	t := p.peek()
	if t != nil && t.Type == token.Ident && t.Value == v {
		p.pos++
		return true
	}
	return false
}

// skipBody advances past a brace-balanced function body.
func (p *Parser) skipBody() error {
	depth := 1
	for depth > 0 {
		t := p.next()
		if t == nil {
			return errors.Syntax(p.line(), "unterminated function body")
		}
		if t.Type == token.Punct {
			switch t.Value {
			case "{":
				depth++
			case "}":
				depth--
			}
		}
	}
	return nil
}

// parseGlobal handles: global @name T [= literal]
func (p *Parser) parseGlobal() error {
	name, err := p.expect(token.GlobalID)
	if err != nil {
		return err
	}
	elem, err := p.parseType()
	if err != nil {
		return err
	}
	var init *ir.Const
	if p.acceptPunct("=") {
		op, err := p.parseOperand()
		if err != nil {
			return err
		}
		v, err := p.resolve(op, elem)
		if err != nil {
			return err
		}
		c, ok := v.(*ir.Const)
		if !ok {
			return errors.Syntax(op.line, "global initializer must be a constant")
		}
		init = c
	}
	p.mod.NewGlobal(name.Value, elem, init)
	return nil
}

// parseFuncHeader handles both forms:
//
//	declare @name(T, ...) -> T [attrs]
//	func @name(%p: T, ...) -> T [attrs]
func (p *Parser) parseFuncHeader(named bool) (*ir.Function, error) {
	name, err := p.expect(token.GlobalID)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var params []ir.Type
	var paramNames []string
	for !p.isPunct(")") {
		if len(params) > 0 {
			if _, err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		if named {
			pn, err := p.expect(token.LocalID)
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(":"); err != nil {
				return nil, err
			}
			paramNames = append(paramNames, pn.Value)
		}
		pt, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, pt)
	}
	p.pos++ // ')'
	if _, err := p.expectPunct("->"); err != nil {
		return nil, err
	}
	ret, err := p.parseType()
	if err != nil {
		return nil, err
	}
	attrs, err := p.parseAttrs()
	if err != nil {
		return nil, err
	}
	if p.mod.FuncByName(name.Value) != nil {
		return nil, errors.Syntax(name.Line, "duplicate function @%s", name.Value)
	}
	sig := &ir.FuncType{Params: params, Ret: ret}
	return p.mod.NewFunc(name.Value, sig, attrs, paramNames...), nil
}

func (p *Parser) parseAttrs() (ir.Attr, error) {
	var attrs ir.Attr
	if !p.acceptPunct("[") {
		return 0, nil
	}
	for !p.isPunct("]") {
		t, err := p.expect(token.Ident)
		if err != nil {
			return 0, err
		}
		a, ok := ir.AttrByName(t.Value)
		if !ok {
			return 0, errors.Syntax(t.Line, "unknown attribute %q", t.Value)
		}
		attrs |= a
	}
	p.pos++ // ']'
	return attrs, nil
}

// parseBody parses the block list of fn up to the closing brace.
func (p *Parser) parseBody(fn *ir.Function) error {
	p.fn = fn
	p.values = make(map[string]ir.Value)
	p.blocks = make(map[string]*ir.Block)
	p.phis = nil
	for _, a := range fn.Params {
		p.values[a.Name()] = a
	}

	// Pre-create blocks so branches can reference any label.
	for i := p.pos; i < len(p.tokens); i++ {
		t := p.tokens[i]
		if t.Type == token.Punct && t.Value == "}" {
			break
		}
		if t.Type == token.Ident && i+1 < len(p.tokens) &&
			p.tokens[i+1].Type == token.Punct && p.tokens[i+1].Value == ":" {
			if p.blocks[t.Value] != nil {
				return errors.Syntax(t.Line, "duplicate block label %q", t.Value)
			}
			p.blocks[t.Value] = fn.NewBlock(t.Value)
		}
	}

	var cur *ir.Block
	for {
		t := p.peek()
		if t == nil {
			return errors.Syntax(p.line(), "unterminated function body")
		}
		if t.Type == token.Punct && t.Value == "}" {
			p.pos++
			break
		}
		if t.Type == token.Ident && p.pos+1 < len(p.tokens) &&
			p.tokens[p.pos+1].Type == token.Punct && p.tokens[p.pos+1].Value == ":" {
			cur = p.blocks[t.Value]
			p.pos += 2
			continue
		}
		if cur == nil {
			return errors.Syntax(t.Line, "instruction before first block label")
		}
		in, err := p.parseInstr()
		if err != nil {
			return err
		}
		cur.Append(in)
		if in.Name() != "" {
			if p.values[in.Name()] != nil {
				return errors.Syntax(t.Line, "duplicate value name %%%s", in.Name())
			}
			p.values[in.Name()] = in
		}
	}

	// Patch phi edges now every value of the body is known.
	for _, ph := range p.phis {
		for i, vop := range ph.vals {
			bb := p.blocks[ph.bbs[i]]
			if bb == nil {
				return errors.Syntax(ph.line, "unknown block %q in phi", ph.bbs[i])
			}
			v, err := p.resolve(vop, ph.typ)
			if err != nil {
				return err
			}
			ph.phi.AddIncoming(v, bb)
		}
	}
	return nil
}

func (p *Parser) parseInstr() (*ir.Instr, error) {
	name := ""
	if t := p.peek(); t != nil && t.Type == token.LocalID {
		name = t.Value
		p.pos++
		if _, err := p.expectPunct("="); err != nil {
			return nil, err
		}
	}
	t, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}

	switch t.Value {
	case "alloca":
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return ir.NewAlloca(name, elem), nil

	case "load":
		addr, err := p.parseResolved(nil)
		if err != nil {
			return nil, err
		}
		if _, ok := addr.Type().(*ir.PointerType); !ok {
			return nil, errors.Syntax(t.Line, "load address is %s, not a pointer", addr.Type())
		}
		return ir.NewLoad(name, addr), nil

	case "store":
		vop, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(","); err != nil {
			return nil, err
		}
		addr, err := p.parseResolved(nil)
		if err != nil {
			return nil, err
		}
		pt, ok := addr.Type().(*ir.PointerType)
		if !ok {
			return nil, errors.Syntax(t.Line, "store address is %s, not a pointer", addr.Type())
		}
		val, err := p.resolve(vop, pt.Elem)
		if err != nil {
			return nil, err
		}
		return ir.NewStore(val, addr), nil

	case "elemaddr":
		inbounds := p.acceptKeyword("inbounds")
		base, err := p.parseResolved(nil)
		if err != nil {
			return nil, err
		}
		var indices []ir.Value
		for p.acceptPunct(",") {
			ix, err := p.parseResolved(ir.I64)
			if err != nil {
				return nil, err
			}
			indices = append(indices, ix)
		}
		in := ir.NewElemAddr(name, base, inbounds, indices...)
		if _, ok := in.Type().(*ir.PointerType); !ok {
			return nil, errors.Syntax(t.Line, "invalid elemaddr index chain")
		}
		return in, nil

	case "cast":
		v, err := p.parseResolved(nil)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword("to"); err != nil {
			return nil, err
		}
		to, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return ir.NewCast(name, v, to), nil

	case "call":
		callee, err := p.parseResolved(nil)
		if err != nil {
			return nil, err
		}
		sig := ir.CallSig(callee)
		if sig == nil {
			return nil, errors.Syntax(t.Line, "callee is not a function")
		}
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		var args []ir.Value
		for !p.isPunct(")") {
			if len(args) > 0 {
				if _, err := p.expectPunct(","); err != nil {
					return nil, err
				}
			}
			if len(args) >= len(sig.Params) {
				return nil, errors.Syntax(t.Line, "too many call arguments")
			}
			a, err := p.parseResolved(sig.Params[len(args)])
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		p.pos++ // ')'
		if len(args) != len(sig.Params) {
			return nil, errors.Syntax(t.Line, "%d arguments for %d parameters", len(args), len(sig.Params))
		}
		return ir.NewCall(name, callee, args...), nil

	case "phi":
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		patch := phiPatch{typ: typ, line: t.Line}
		for p.acceptPunct("[") {
			vop, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(","); err != nil {
				return nil, err
			}
			bb, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			patch.vals = append(patch.vals, vop)
			patch.bbs = append(patch.bbs, bb.Value)
		}
		phi := ir.NewPhi(name, typ)
		patch.phi = phi
		p.phis = append(p.phis, patch)
		return phi, nil

	case "add", "sub", "mul", "and", "or", "xor", "shl", "lshr":
		op := map[string]ir.Op{
			"add": ir.OpAdd, "sub": ir.OpSub, "mul": ir.OpMul,
			"and": ir.OpAnd, "or": ir.OpOr, "xor": ir.OpXor,
			"shl": ir.OpShl, "lshr": ir.OpLShr,
		}[t.Value]
		x, y, err := p.parseBinOperands()
		if err != nil {
			return nil, err
		}
		return ir.NewBinOp(op, name, x, y), nil

	case "icmp":
		pt, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		pred, ok := ir.PredByName(pt.Value)
		if !ok {
			return nil, errors.Syntax(pt.Line, "unknown predicate %q", pt.Value)
		}
		x, y, err := p.parseBinOperands()
		if err != nil {
			return nil, err
		}
		return ir.NewICmp(name, pred, x, y), nil

	case "br":
		if tk := p.peek(); tk != nil && tk.Type == token.Ident {
			dst, err := p.parseBlockRef()
			if err != nil {
				return nil, err
			}
			return ir.NewBr(dst), nil
		}
		cond, err := p.parseResolved(ir.I1)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(","); err != nil {
			return nil, err
		}
		then, err := p.parseBlockRef()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(","); err != nil {
			return nil, err
		}
		els, err := p.parseBlockRef()
		if err != nil {
			return nil, err
		}
		return ir.NewCondBr(cond, then, els), nil

	case "switch":
		v, err := p.parseResolved(nil)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(","); err != nil {
			return nil, err
		}
		def, err := p.parseBlockRef()
		if err != nil {
			return nil, err
		}
		sw := ir.NewSwitch(v, def)
		for p.acceptPunct("[") {
			c, err := p.parseResolved(v.Type())
			if err != nil {
				return nil, err
			}
			cc, ok := c.(*ir.Const)
			if !ok {
				return nil, errors.Syntax(t.Line, "switch case must be a constant")
			}
			if _, err := p.expectPunct(","); err != nil {
				return nil, err
			}
			dst, err := p.parseBlockRef()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			sw.AddCase(cc, dst)
		}
		return sw, nil

	case "ret":
		if _, void := p.fn.Sig.Ret.(*ir.VoidType); void {
			return ir.NewRet(nil), nil
		}
		v, err := p.parseResolved(p.fn.Sig.Ret)
		if err != nil {
			return nil, err
		}
		return ir.NewRet(v), nil
	}

	return nil, errors.Syntax(t.Line, "unknown instruction %q", t.Value)
}

// parseBinOperands handles the "[type] x, y" tail of binary
// instructions. The leading type is optional when the first operand is
// a named value.
func (p *Parser) parseBinOperands() (ir.Value, ir.Value, error) {
	var typ ir.Type
	if p.peekIsType() {
		t, err := p.parseType()
		if err != nil {
			return nil, nil, err
		}
		typ = t
	}
	xop, err := p.parseOperand()
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.expectPunct(","); err != nil {
		return nil, nil, err
	}
	x, err := p.resolve(xop, typ)
	if err != nil {
		return nil, nil, err
	}
	y, err := p.parseResolved(x.Type())
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func (p *Parser) parseBlockRef() (*ir.Block, error) {
	t, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	bb := p.blocks[t.Value]
	if bb == nil {
		return nil, errors.Syntax(t.Line, "unknown block %q", t.Value)
	}
	return bb, nil
}

// parseOperand reads one operand without typing literals. Const
// expressions resolve eagerly since they carry their own type.
func (p *Parser) parseOperand() (operand, error) {
	t := p.next()
	if t == nil {
		return operand{}, errors.Syntax(p.line(), "unexpected end of input, expected operand")
	}
	switch t.Type {
	case token.LocalID, token.GlobalID, token.Number:
		return operand{text: t.Value, typ: t.Type, line: t.Line}, nil
	case token.Ident:
		switch t.Value {
		case "null", "undef":
			return operand{text: t.Value, typ: t.Type, line: t.Line}, nil
		case "elemaddr", "cast":
			v, err := p.parseConstExpr(t.Value)
			if err != nil {
				return operand{}, err
			}
			return operand{val: v, line: t.Line}, nil
		}
	}
	return operand{}, errors.Syntax(t.Line, "expected operand, got %q", t.Value)
}

// parseConstExpr handles the folded operand forms
// "elemaddr [inbounds](base, i, ...)" and "cast(base to T)".
func (p *Parser) parseConstExpr(kind string) (ir.Value, error) {
	if kind == "elemaddr" {
		inbounds := p.acceptKeyword("inbounds")
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		base, err := p.parseResolved(nil)
		if err != nil {
			return nil, err
		}
		var indices []int64
		for p.acceptPunct(",") {
			n, err := p.expect(token.Number)
			if err != nil {
				return nil, err
			}
			v, err := strconv.ParseInt(n.Value, 10, 64)
			if err != nil {
				return nil, errors.Syntax(n.Line, "bad index %q", n.Value)
			}
			indices = append(indices, v)
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		c := ir.ConstAddr(base, inbounds, indices...)
		if _, ok := c.Type().(*ir.PointerType); !ok {
			return nil, errors.Syntax(p.line(), "invalid constant elemaddr")
		}
		return c, nil
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	base, err := p.parseResolved(nil)
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("to"); err != nil {
		return nil, err
	}
	to, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return ir.ConstPtrCast(base, to), nil
}

// parseResolved parses one operand and resolves it against expected.
func (p *Parser) parseResolved(expected ir.Type) (ir.Value, error) {
	op, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return p.resolve(op, expected)
}

// resolve materializes an operand descriptor. expected types literal
// tokens and may be nil when the operand must be a named value.
func (p *Parser) resolve(op operand, expected ir.Type) (ir.Value, error) {
	if op.val != nil {
		return op.val, nil
	}
	switch op.typ {
	case token.LocalID:
		v := p.values[op.text]
		if v == nil {
			return nil, errors.Syntax(op.line, "use of undefined value %%%s", op.text)
		}
		return v, nil
	case token.GlobalID:
		if g := p.mod.GlobalByName(op.text); g != nil {
			return g, nil
		}
		if f := p.mod.FuncByName(op.text); f != nil {
			return f, nil
		}
		return nil, errors.Syntax(op.line, "use of undefined name @%s", op.text)
	case token.Number:
		switch t := expected.(type) {
		case *ir.IntType:
			v, err := strconv.ParseInt(op.text, 10, 64)
			if err != nil {
				return nil, errors.Syntax(op.line, "bad integer %q", op.text)
			}
			return ir.NewInt(t, v), nil
		case *ir.FloatType:
			v, err := strconv.ParseFloat(op.text, 64)
			if err != nil {
				return nil, errors.Syntax(op.line, "bad float %q", op.text)
			}
			return ir.NewFloat(t, v), nil
		}
		return nil, errors.Syntax(op.line, "cannot type literal %q here", op.text)
	case token.Ident:
		if expected == nil {
			return nil, errors.Syntax(op.line, "cannot type %q here", op.text)
		}
		if op.text == "null" {
			return ir.Null(expected), nil
		}
		return ir.Undef(expected), nil
	}
	return nil, errors.Syntax(op.line, "bad operand %q", op.text)
}

func (p *Parser) peekIsType() bool {
	t := p.peek()
	if t == nil {
		return false
	}
	if t.Type == token.Punct {
		return t.Value == "{" || t.Value == "["
	}
	if t.Type != token.Ident {
		return false
	}
	switch t.Value {
	case "void", "i1", "i8", "i16", "i32", "i64", "f32", "f64", "ptr", "fn":
		return true
	}
	return false
}

func (p *Parser) parseType() (ir.Type, error) {
	t := p.next()
	if t == nil {
		return nil, errors.Syntax(p.line(), "unexpected end of input, expected type")
	}
	if t.Type == token.Punct {
		switch t.Value {
		case "{":
			var fields []ir.Type
			for !p.isPunct("}") {
				if len(fields) > 0 {
					if _, err := p.expectPunct(","); err != nil {
						return nil, err
					}
				}
				ft, err := p.parseType()
				if err != nil {
					return nil, err
				}
				fields = append(fields, ft)
			}
			p.pos++ // '}'
			return &ir.StructType{Fields: fields}, nil
		case "[":
			n, err := p.expect(token.Number)
			if err != nil {
				return nil, err
			}
			ln, err := strconv.Atoi(n.Value)
			if err != nil || ln < 0 {
				return nil, errors.Syntax(n.Line, "bad array length %q", n.Value)
			}
			if _, err := p.expectKeyword("x"); err != nil {
				return nil, err
			}
			elem, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			return &ir.ArrayType{Elem: elem, Len: ln}, nil
		}
		return nil, errors.Syntax(t.Line, "expected type, got %q", t.Value)
	}
	if t.Type != token.Ident {
		return nil, errors.Syntax(t.Line, "expected type, got %q", t.Value)
	}
	switch t.Value {
	case "void":
		return ir.Void, nil
	case "i1":
		return ir.I1, nil
	case "i8":
		return ir.I8, nil
	case "i16":
		return ir.I16, nil
	case "i32":
		return ir.I32, nil
	case "i64":
		return ir.I64, nil
	case "f32":
		return ir.F32, nil
	case "f64":
		return ir.F64, nil
	case "ptr":
		if _, err := p.expectPunct("<"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		space := ir.SpaceLocal
		if p.acceptPunct(",") {
			st, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			switch st.Value {
			case "global":
				space = ir.SpaceGlobal
			case "symmetric":
				space = ir.SpaceSymmetric
			case "local":
				space = ir.SpaceLocal
			default:
				return nil, errors.Syntax(st.Line, "unknown address space %q", st.Value)
			}
		}
		if _, err := p.expectPunct(">"); err != nil {
			return nil, err
		}
		return ir.PtrIn(elem, space), nil
	case "fn":
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		var params []ir.Type
		for !p.isPunct(")") {
			if len(params) > 0 {
				if _, err := p.expectPunct(","); err != nil {
					return nil, err
				}
			}
			pt, err := p.parseType()
			if err != nil {
				return nil, err
			}
			params = append(params, pt)
		}
		p.pos++ // ')'
		if _, err := p.expectPunct("->"); err != nil {
			return nil, err
		}
		ret, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &ir.FuncType{Params: params, Ret: ret}, nil
	}
	return nil, errors.Syntax(t.Line, "unknown type %q", t.Value)
}
