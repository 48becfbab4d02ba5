package ir

import (
	"fmt"
	"strings"
)

// Op identifies an instruction kind.
type Op int

const (
	OpInvalid Op = iota
	OpAlloca
	OpLoad
	OpStore
	OpElemAddr
	OpCast
	OpCall
	OpPhi
	OpAdd
	OpSub
	OpMul
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr
	OpICmp
	OpBr
	OpCondBr
	OpSwitch
	OpRet
)

var opNames = [...]string{
	OpInvalid:  "invalid",
	OpAlloca:   "alloca",
	OpLoad:     "load",
	OpStore:    "store",
	OpElemAddr: "elemaddr",
	OpCast:     "cast",
	OpCall:     "call",
	OpPhi:      "phi",
	OpAdd:      "add",
	OpSub:      "sub",
	OpMul:      "mul",
	OpAnd:      "and",
	OpOr:       "or",
	OpXor:      "xor",
	OpShl:      "shl",
	OpLShr:     "lshr",
	OpICmp:     "icmp",
	OpBr:       "br",
	OpCondBr:   "condbr",
	OpSwitch:   "switch",
	OpRet:      "ret",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// IsTerminator reports whether o ends a basic block.
func (o Op) IsTerminator() bool {
	switch o {
	case OpBr, OpCondBr, OpSwitch, OpRet:
		return true
	}
	return false
}

// Pred is an integer comparison predicate.
type Pred int

const (
	PredEQ Pred = iota
	PredNE
	PredSLT
	PredSLE
	PredSGT
	PredSGE
	PredULT
	PredULE
	PredUGT
	PredUGE
)

var predNames = [...]string{"eq", "ne", "slt", "sle", "sgt", "sge", "ult", "ule", "ugt", "uge"}

func (p Pred) String() string {
	if int(p) < len(predNames) {
		return predNames[p]
	}
	return fmt.Sprintf("pred(%d)", int(p))
}

// PredByName returns the predicate with the given mnemonic.
func PredByName(name string) (Pred, bool) {
	for i, n := range predNames {
		if n == name {
			return Pred(i), true
		}
	}
	return 0, false
}

// Instr is a single instruction. Operand edges stay symmetric with
// each operand's use list; mutate them only through SetOperand and the
// block insertion helpers.
type Instr struct {
	valueBase
	Op  Op
	typ Type
	ops []Value
	blk *Block

	Allocated Type // OpAlloca element type
	InBounds  bool // OpElemAddr
	Pred      Pred // OpICmp
}

// NewInstr builds a detached instruction. The caller attaches it with
// Block.Append or Block.InsertBefore.
func NewInstr(op Op, typ Type, operands ...Value) *Instr {
	in := &Instr{Op: op, typ: typ}
	in.ops = make([]Value, len(operands))
	for k, o := range operands {
		in.ops[k] = o
		if o != nil {
			o.addUse(use{user: in, idx: k})
		}
	}
	return in
}

// NewAlloca returns a stack allocation of one elem cell. Its value is
// a local pointer to the cell.
func NewAlloca(name string, elem Type) *Instr {
	in := NewInstr(OpAlloca, PtrTo(elem))
	in.name = name
	in.Allocated = elem
	return in
}

// NewLoad returns a load through addr, typed as addr's pointee.
func NewLoad(name string, addr Value) *Instr {
	t := Type(Void)
	if pt, ok := addr.Type().(*PointerType); ok {
		t = pt.Elem
	}
	in := NewInstr(OpLoad, t, addr)
	in.name = name
	return in
}

// NewStore returns a store of val through addr.
func NewStore(val, addr Value) *Instr {
	return NewInstr(OpStore, Void, val, addr)
}

// NewElemAddr returns an address computation from base. On an invalid
// index chain the result type is void; Verify rejects it.
func NewElemAddr(name string, base Value, inbounds bool, indices ...Value) *Instr {
	t, err := ElemAddrType(base.Type(), indices)
	if err != nil {
		t = Void
	}
	ops := append([]Value{base}, indices...)
	in := NewInstr(OpElemAddr, t, ops...)
	in.name = name
	in.InBounds = inbounds
	return in
}

// NewCast returns v reinterpreted as type to.
func NewCast(name string, v Value, to Type) *Instr {
	in := NewInstr(OpCast, to, v)
	in.name = name
	return in
}

// NewCall returns a call of callee with the given arguments. The
// result type comes from the callee's signature.
func NewCall(name string, callee Value, args ...Value) *Instr {
	t := Type(Void)
	if sig := CallSig(callee); sig != nil {
		t = sig.Ret
	}
	ops := append([]Value{callee}, args...)
	in := NewInstr(OpCall, t, ops...)
	in.name = name
	return in
}

// NewBinOp returns a two-operand arithmetic or bitwise instruction.
func NewBinOp(op Op, name string, x, y Value) *Instr {
	in := NewInstr(op, x.Type(), x, y)
	in.name = name
	return in
}

// NewICmp returns an integer comparison producing i1.
func NewICmp(name string, pred Pred, x, y Value) *Instr {
	in := NewInstr(OpICmp, I1, x, y)
	in.name = name
	in.Pred = pred
	return in
}

// NewPhi returns an empty phi of type t. Add edges with AddIncoming.
func NewPhi(name string, t Type) *Instr {
	in := NewInstr(OpPhi, t)
	in.name = name
	return in
}

// NewBr returns an unconditional branch to dst.
func NewBr(dst *Block) *Instr {
	return NewInstr(OpBr, Void, dst)
}

// NewCondBr returns a conditional branch on cond.
func NewCondBr(cond Value, then, els *Block) *Instr {
	return NewInstr(OpCondBr, Void, cond, then, els)
}

// NewSwitch returns a switch on v with the given default destination.
// Add cases with AddCase.
func NewSwitch(v Value, def *Block) *Instr {
	return NewInstr(OpSwitch, Void, v, def)
}

// NewRet returns a return of v, or a void return when v is nil.
func NewRet(v Value) *Instr {
	if v == nil {
		return NewInstr(OpRet, Void)
	}
	return NewInstr(OpRet, Void, v)
}

// CallSig returns the signature reachable through a callee value, nil
// if the value is not function-typed.
func CallSig(callee Value) *FuncType {
	if f, ok := callee.(*Function); ok {
		return f.Sig
	}
	if pt, ok := callee.Type().(*PointerType); ok {
		if ft, ok := pt.Elem.(*FuncType); ok {
			return ft
		}
	}
	return nil
}

// ElemAddrType computes the result type of an address computation.
// The first index strides over the base pointee; later indices descend
// into aggregates. Struct descent requires integer literal indices.
// The result keeps the base pointer's address space.
func ElemAddrType(base Type, indices []Value) (Type, error) {
	pt, ok := base.(*PointerType)
	if !ok {
		return nil, fmt.Errorf("elemaddr base is %s, not a pointer", base)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("elemaddr needs at least one index")
	}
	cur := pt.Elem
	for _, ix := range indices[1:] {
		switch t := cur.(type) {
		case *ArrayType:
			cur = t.Elem
		case *StructType:
			c, ok := ix.(*Const)
			if !ok || c.Kind != ConstInt {
				return nil, fmt.Errorf("struct index into %s must be an integer literal", t)
			}
			if c.Int < 0 || int(c.Int) >= len(t.Fields) {
				return nil, fmt.Errorf("struct index %d out of range for %s", c.Int, t)
			}
			cur = t.Fields[c.Int]
		default:
			return nil, fmt.Errorf("cannot index into %s", cur)
		}
	}
	return PtrIn(cur, pt.Space), nil
}

func (i *Instr) Type() Type {
	if i.typ == nil {
		return Void
	}
	return i.typ
}

// Block returns the block the instruction belongs to, nil while
// detached.
func (i *Instr) Block() *Block { return i.blk }

func (i *Instr) NumOperands() int    { return len(i.ops) }
func (i *Instr) Operand(k int) Value { return i.ops[k] }

// Operands returns a copy of the operand list.
func (i *Instr) Operands() []Value { return append([]Value(nil), i.ops...) }

// SetOperand replaces operand k, updating use lists on both sides.
func (i *Instr) SetOperand(k int, v Value) {
	if old := i.ops[k]; old != nil {
		old.removeUse(use{user: i, idx: k})
	}
	i.ops[k] = v
	if v != nil {
		v.addUse(use{user: i, idx: k})
	}
}

// appendOperand grows the operand list; append-only so existing use
// indices stay valid.
func (i *Instr) appendOperand(v Value) {
	i.ops = append(i.ops, v)
	if v != nil {
		v.addUse(use{user: i, idx: len(i.ops) - 1})
	}
}

// dropOperands unlinks every operand edge. Used when instructions are
// discarded wholesale.
func (i *Instr) dropOperands() {
	for k, o := range i.ops {
		if o != nil {
			o.removeUse(use{user: i, idx: k})
			i.ops[k] = nil
		}
	}
}

// clone returns a detached copy still referencing the same operands.
func (i *Instr) clone() *Instr {
	c := NewInstr(i.Op, i.typ, i.ops...)
	c.name = i.name
	c.Allocated = i.Allocated
	c.InBounds = i.InBounds
	c.Pred = i.Pred
	return c
}

// Addr returns the address operand of a load or store, nil otherwise.
func (i *Instr) Addr() Value {
	switch i.Op {
	case OpLoad:
		return i.ops[0]
	case OpStore:
		return i.ops[1]
	}
	return nil
}

// Stored returns the value operand of a store.
func (i *Instr) Stored() Value {
	if i.Op == OpStore {
		return i.ops[0]
	}
	return nil
}

// Callee returns the callee operand of a call.
func (i *Instr) Callee() Value {
	if i.Op == OpCall {
		return i.ops[0]
	}
	return nil
}

// Args returns the argument operands of a call.
func (i *Instr) Args() []Value {
	if i.Op != OpCall {
		return nil
	}
	return append([]Value(nil), i.ops[1:]...)
}

// CalleeFunc returns the directly called function, nil for indirect
// or cast callees.
func (i *Instr) CalleeFunc() *Function {
	f, _ := i.Callee().(*Function)
	return f
}

// MayTouchMemory reports whether the instruction can read or write
// memory. Calls defer to the callee's attributes; indirect calls are
// assumed to touch memory.
func (i *Instr) MayTouchMemory() bool {
	switch i.Op {
	case OpLoad, OpStore:
		return true
	case OpCall:
		if f := i.CalleeFunc(); f != nil && f.Attrs.Has(AttrReadNone) {
			return false
		}
		return true
	}
	return false
}

// AddIncoming appends a phi edge carrying v from pred.
func (i *Instr) AddIncoming(v Value, pred *Block) {
	i.appendOperand(v)
	i.appendOperand(pred)
}

// NumIncoming returns the number of phi edges.
func (i *Instr) NumIncoming() int { return len(i.ops) / 2 }

// Incoming returns the k-th phi edge.
func (i *Instr) Incoming(k int) (Value, *Block) {
	b, _ := i.ops[2*k+1].(*Block)
	return i.ops[2*k], b
}

// IncomingFor returns the value flowing in from pred, nil if absent.
func (i *Instr) IncomingFor(pred *Block) Value {
	for k := 0; k < i.NumIncoming(); k++ {
		if v, b := i.Incoming(k); b == pred {
			return v
		}
	}
	return nil
}

// AddCase appends a switch case.
func (i *Instr) AddCase(c *Const, dst *Block) {
	i.appendOperand(c)
	i.appendOperand(dst)
}

// NumCases returns the number of switch cases, default excluded.
func (i *Instr) NumCases() int { return (len(i.ops) - 2) / 2 }

// Case returns the k-th switch case.
func (i *Instr) Case(k int) (*Const, *Block) {
	c, _ := i.ops[2*k+2].(*Const)
	b, _ := i.ops[2*k+3].(*Block)
	return c, b
}

// DefaultDest returns a switch's default destination.
func (i *Instr) DefaultDest() *Block {
	b, _ := i.ops[1].(*Block)
	return b
}

// ref renders a value the way it appears in an operand position.
func ref(v Value) string {
	switch v := v.(type) {
	case nil:
		return "<nil>"
	case *Instr:
		return "%" + v.name
	case *Argument:
		return "%" + v.name
	case *Block:
		return v.name
	default:
		return v.String()
	}
}

// String returns the instruction in statement form, the same form the
// module printer emits.
func (i *Instr) String() string {
	var sb strings.Builder
	if i.name != "" {
		sb.WriteString("%")
		sb.WriteString(i.name)
		sb.WriteString(" = ")
	}
	switch i.Op {
	case OpAlloca:
		fmt.Fprintf(&sb, "alloca %s", i.Allocated)
	case OpLoad:
		fmt.Fprintf(&sb, "load %s", ref(i.ops[0]))
	case OpStore:
		fmt.Fprintf(&sb, "store %s, %s", ref(i.ops[0]), ref(i.ops[1]))
	case OpElemAddr:
		sb.WriteString("elemaddr ")
		if i.InBounds {
			sb.WriteString("inbounds ")
		}
		sb.WriteString(ref(i.ops[0]))
		for _, ix := range i.ops[1:] {
			sb.WriteString(", ")
			sb.WriteString(ref(ix))
		}
	case OpCast:
		fmt.Fprintf(&sb, "cast %s to %s", ref(i.ops[0]), i.Type())
	case OpCall:
		fmt.Fprintf(&sb, "call %s(", ref(i.ops[0]))
		for k, a := range i.ops[1:] {
			if k > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(ref(a))
		}
		sb.WriteByte(')')
	case OpPhi:
		fmt.Fprintf(&sb, "phi %s", i.Type())
		for k := 0; k < i.NumIncoming(); k++ {
			v, b := i.Incoming(k)
			fmt.Fprintf(&sb, " [%s, %s]", ref(v), ref(b))
		}
	case OpAdd, OpSub, OpMul, OpAnd, OpOr, OpXor, OpShl, OpLShr:
		fmt.Fprintf(&sb, "%s %s %s, %s", i.Op, i.ops[0].Type(), ref(i.ops[0]), ref(i.ops[1]))
	case OpICmp:
		fmt.Fprintf(&sb, "icmp %s %s %s, %s", i.Pred, i.ops[0].Type(), ref(i.ops[0]), ref(i.ops[1]))
	case OpBr:
		fmt.Fprintf(&sb, "br %s", ref(i.ops[0]))
	case OpCondBr:
		fmt.Fprintf(&sb, "br %s, %s, %s", ref(i.ops[0]), ref(i.ops[1]), ref(i.ops[2]))
	case OpSwitch:
		fmt.Fprintf(&sb, "switch %s, %s", ref(i.ops[0]), ref(i.ops[1]))
		for k := 0; k < i.NumCases(); k++ {
			c, b := i.Case(k)
			fmt.Fprintf(&sb, " [%s, %s]", ref(c), ref(b))
		}
	case OpRet:
		sb.WriteString("ret")
		if len(i.ops) == 1 {
			sb.WriteString(" ")
			sb.WriteString(ref(i.ops[0]))
		}
	default:
		sb.WriteString(i.Op.String())
	}
	return sb.String()
}
