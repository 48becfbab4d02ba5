package ir

import (
	"fmt"
	"strings"
)

// AddrSpace identifies which memory a pointer addresses.
type AddrSpace int

// Address spaces. The numeric values match the address space numbering
// of the originating toolchain and are stable across tools.
const (
	SpaceLocal     AddrSpace = 0   // node-private memory
	SpaceGlobal    AddrSpace = 100 // owned by a single node, remotely addressable
	SpaceSymmetric AddrSpace = 200 // replicated, one copy per node
)

func (s AddrSpace) String() string {
	switch s {
	case SpaceLocal:
		return "local"
	case SpaceGlobal:
		return "global"
	case SpaceSymmetric:
		return "symmetric"
	default:
		return fmt.Sprintf("space%d", int(s))
	}
}

// Type describes the compile-time type of a value.
type Type interface {
	String() string
}

// Singleton scalar types. Use these rather than constructing new
// instances so pointer comparison works for the common cases.
var (
	Void  = &VoidType{}
	I1    = &IntType{Bits: 1}
	I8    = &IntType{Bits: 8}
	I16   = &IntType{Bits: 16}
	I32   = &IntType{Bits: 32}
	I64   = &IntType{Bits: 64}
	F32   = &FloatType{Bits: 32}
	F64   = &FloatType{Bits: 64}
	Label = &LabelType{}
)

// IntBits returns the integer type of the given width.
func IntBits(bits int) (*IntType, bool) {
	switch bits {
	case 1:
		return I1, true
	case 8:
		return I8, true
	case 16:
		return I16, true
	case 32:
		return I32, true
	case 64:
		return I64, true
	}
	return nil, false
}

// VoidType is the type of instructions that produce no value.
type VoidType struct{}

func (*VoidType) String() string { return "void" }

// IntType is an integer type of a fixed bit width.
type IntType struct {
	Bits int
}

func (t *IntType) String() string { return fmt.Sprintf("i%d", t.Bits) }

// FloatType is a floating point type of a fixed bit width.
type FloatType struct {
	Bits int
}

func (t *FloatType) String() string { return fmt.Sprintf("f%d", t.Bits) }

// LabelType is the type of basic blocks used as branch targets.
type LabelType struct{}

func (*LabelType) String() string { return "label" }

// PointerType is an address into one of the address spaces.
type PointerType struct {
	Elem  Type
	Space AddrSpace
}

// PtrTo returns a local-space pointer to elem.
func PtrTo(elem Type) *PointerType { return &PointerType{Elem: elem} }

// PtrIn returns a pointer to elem in the given address space.
func PtrIn(elem Type, space AddrSpace) *PointerType {
	return &PointerType{Elem: elem, Space: space}
}

func (t *PointerType) String() string {
	if t.Space == SpaceLocal {
		return fmt.Sprintf("ptr<%s>", t.Elem)
	}
	return fmt.Sprintf("ptr<%s, %s>", t.Elem, t.Space)
}

// StructType is an ordered field aggregate with C-style layout.
type StructType struct {
	Fields []Type
}

func (t *StructType) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, f := range t.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// ArrayType is a fixed-length sequence of one element type.
type ArrayType struct {
	Elem Type
	Len  int
}

func (t *ArrayType) String() string { return fmt.Sprintf("[%d x %s]", t.Len, t.Elem) }

// FuncType is a function signature.
type FuncType struct {
	Params []Type
	Ret    Type
}

func (t *FuncType) String() string {
	var sb strings.Builder
	sb.WriteString("fn(")
	for i, p := range t.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(") -> ")
	sb.WriteString(t.Ret.String())
	return sb.String()
}

// TypesEqual reports structural equality of two types.
func TypesEqual(a, b Type) bool {
	if a == b {
		return true
	}
	switch a := a.(type) {
	case *VoidType:
		_, ok := b.(*VoidType)
		return ok
	case *LabelType:
		_, ok := b.(*LabelType)
		return ok
	case *IntType:
		bt, ok := b.(*IntType)
		return ok && a.Bits == bt.Bits
	case *FloatType:
		bt, ok := b.(*FloatType)
		return ok && a.Bits == bt.Bits
	case *PointerType:
		bt, ok := b.(*PointerType)
		return ok && a.Space == bt.Space && TypesEqual(a.Elem, bt.Elem)
	case *ArrayType:
		bt, ok := b.(*ArrayType)
		return ok && a.Len == bt.Len && TypesEqual(a.Elem, bt.Elem)
	case *StructType:
		bt, ok := b.(*StructType)
		if !ok || len(a.Fields) != len(bt.Fields) {
			return false
		}
		for i := range a.Fields {
			if !TypesEqual(a.Fields[i], bt.Fields[i]) {
				return false
			}
		}
		return true
	case *FuncType:
		bt, ok := b.(*FuncType)
		if !ok || len(a.Params) != len(bt.Params) || !TypesEqual(a.Ret, bt.Ret) {
			return false
		}
		for i := range a.Params {
			if !TypesEqual(a.Params[i], bt.Params[i]) {
				return false
			}
		}
		return true
	}
	return false
}
