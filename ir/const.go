package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ConstKind discriminates constant forms.
type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstNull
	ConstUndef
	// ConstElemAddr and ConstCast are constant address computations:
	// the folded form of elemaddr and cast applied to constant
	// operands. They stay structural so analyses can walk them like
	// instructions without materializing any.
	ConstElemAddr
	ConstCast
)

// Const is a typed literal or constant expression.
type Const struct {
	valueBase
	Kind     ConstKind
	typ      Type
	Int      int64
	Float    float64
	Base     Value   // ConstElemAddr, ConstCast
	Indices  []int64 // ConstElemAddr
	InBounds bool    // ConstElemAddr
}

// NewInt returns an integer constant of type t.
func NewInt(t Type, v int64) *Const {
	return &Const{Kind: ConstInt, typ: t, Int: v}
}

// NewFloat returns a floating point constant of type t.
func NewFloat(t Type, v float64) *Const {
	return &Const{Kind: ConstFloat, typ: t, Float: v}
}

// Null returns the null pointer of type t.
func Null(t Type) *Const { return &Const{Kind: ConstNull, typ: t} }

// Undef returns an undefined value of type t.
func Undef(t Type) *Const { return &Const{Kind: ConstUndef, typ: t} }

// ConstAddr returns a constant address computation over base, which
// must itself be a constant or global.
func ConstAddr(base Value, inbounds bool, indices ...int64) *Const {
	ivs := make([]Value, len(indices))
	for i, ix := range indices {
		ivs[i] = NewInt(I64, ix)
	}
	t, err := ElemAddrType(base.Type(), ivs)
	if err != nil {
		t = Void
	}
	return &Const{Kind: ConstElemAddr, typ: t, Base: base, Indices: indices, InBounds: inbounds}
}

// ConstPtrCast returns base reinterpreted as type to.
func ConstPtrCast(base Value, to Type) *Const {
	return &Const{Kind: ConstCast, typ: to, Base: base}
}

func (c *Const) Type() Type { return c.typ }

// IsZero reports whether c is the integer literal zero.
func (c *Const) IsZero() bool { return c.Kind == ConstInt && c.Int == 0 }

func (c *Const) String() string {
	switch c.Kind {
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case ConstNull:
		return "null"
	case ConstUndef:
		return "undef"
	case ConstElemAddr:
		var sb strings.Builder
		sb.WriteString("elemaddr")
		if c.InBounds {
			sb.WriteString(" inbounds")
		}
		sb.WriteByte('(')
		sb.WriteString(c.Base.String())
		for _, ix := range c.Indices {
			sb.WriteString(", ")
			sb.WriteString(strconv.FormatInt(ix, 10))
		}
		sb.WriteByte(')')
		return sb.String()
	case ConstCast:
		return fmt.Sprintf("cast(%s to %s)", c.Base, c.typ)
	default:
		return "badconst"
	}
}
