package interp

import (
	"context"

	"go.uber.org/zap"

	"github.com/maqayum/grappa/errors"
	"github.com/maqayum/grappa/ir"
)

// Run executes fnName on node 0 with the given arguments and returns
// its result (the zero Value for void functions). The step budget
// covers the whole call tree, remote re-entries included.
func (m *Machine) Run(ctx context.Context, fnName string, args ...Value) (Value, error) {
	fn := m.mod.FuncByName(fnName)
	if fn == nil {
		return Value{}, errors.NotFound(errors.PhaseRun, "function @"+fnName)
	}
	m.steps = 0
	return m.call(ctx, fn, 0, args)
}

// frame is one activation: the executing node plus the SSA value
// bindings of the function body.
type frame struct {
	fn   *ir.Function
	node int
	vals map[ir.Value]Value
}

func (m *Machine) call(ctx context.Context, fn *ir.Function, node int, args []Value) (Value, error) {
	if fn.IsDecl() {
		return m.callBuiltin(ctx, fn, node, args)
	}
	if len(args) != len(fn.Params) {
		return Value{}, errors.New(errors.PhaseRun, errors.KindInternal,
			"%d arguments for %d parameters of @%s", len(args), len(fn.Params), fn.Name())
	}
	fr := &frame{fn: fn, node: node, vals: make(map[ir.Value]Value)}
	for i, p := range fn.Params {
		fr.vals[p] = args[i]
	}

	cur := fn.Entry()
	var prev *ir.Block
	for {
		if err := ctx.Err(); err != nil {
			return Value{}, err
		}
		next, ret, done, err := m.execBlock(ctx, fr, cur, prev)
		if err != nil {
			return Value{}, err
		}
		if done {
			return ret, nil
		}
		prev, cur = cur, next
	}
}

// execBlock runs one block. Phis at the head read their incoming
// values against prev simultaneously before any of them is rebound.
func (m *Machine) execBlock(ctx context.Context, fr *frame, bb, prev *ir.Block) (next *ir.Block, ret Value, done bool, err error) {
	k := 0
	if first := bb.First(); first != nil && first.Op == ir.OpPhi {
		var phis []*ir.Instr
		var staged []Value
		for ; k < len(bb.Instrs) && bb.Instrs[k].Op == ir.OpPhi; k++ {
			phi := bb.Instrs[k]
			in := phi.IncomingFor(prev)
			if in == nil {
				return nil, Value{}, false, errors.New(errors.PhaseRun, errors.KindInternal,
					"phi %s in @%s has no edge from %s", phi, fr.fn.Name(), prev.Name())
			}
			v, err := m.eval(fr, in)
			if err != nil {
				return nil, Value{}, false, err
			}
			phis = append(phis, phi)
			staged = append(staged, v)
		}
		for i, phi := range phis {
			fr.vals[phi] = staged[i]
		}
		m.steps += len(phis)
	}

	for ; k < len(bb.Instrs); k++ {
		in := bb.Instrs[k]
		m.steps++
		if m.steps > m.stepLimit {
			return nil, Value{}, false, errors.StepLimit(fr.fn.Name(), m.stepLimit)
		}
		switch in.Op {
		case ir.OpAlloca:
			li := ir.Layout(in.Allocated)
			fr.vals[in] = Value{Kind: KindPtr, Node: fr.node, Off: m.alloc(fr.node, li.Size, li.Align)}

		case ir.OpLoad:
			p, err := m.eval(fr, in.Addr())
			if err != nil {
				return nil, Value{}, false, err
			}
			v, err := m.loadMem(fr.fn.Name(), p, in.Type())
			if err != nil {
				return nil, Value{}, false, err
			}
			fr.vals[in] = v

		case ir.OpStore:
			v, err := m.eval(fr, in.Stored())
			if err != nil {
				return nil, Value{}, false, err
			}
			p, err := m.eval(fr, in.Addr())
			if err != nil {
				return nil, Value{}, false, err
			}
			if err := m.storeMem(fr.fn.Name(), p, v, in.Stored().Type()); err != nil {
				return nil, Value{}, false, err
			}

		case ir.OpElemAddr:
			v, err := m.execElemAddr(fr, in)
			if err != nil {
				return nil, Value{}, false, err
			}
			fr.vals[in] = v

		case ir.OpCast:
			v, err := m.eval(fr, in.Operand(0))
			if err != nil {
				return nil, Value{}, false, err
			}
			fr.vals[in] = castValue(v, in.Type())

		case ir.OpCall:
			v, err := m.execCall(ctx, fr, in)
			if err != nil {
				return nil, Value{}, false, err
			}
			fr.vals[in] = v

		case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpLShr:
			x, err := m.eval(fr, in.Operand(0))
			if err != nil {
				return nil, Value{}, false, err
			}
			y, err := m.eval(fr, in.Operand(1))
			if err != nil {
				return nil, Value{}, false, err
			}
			bits := in.Type().(*ir.IntType).Bits
			fr.vals[in] = IntValue(truncate(binOp(in.Op, x.Int, y.Int, bits), bits))

		case ir.OpICmp:
			x, err := m.eval(fr, in.Operand(0))
			if err != nil {
				return nil, Value{}, false, err
			}
			y, err := m.eval(fr, in.Operand(1))
			if err != nil {
				return nil, Value{}, false, err
			}
			fr.vals[in] = IntValue(boolInt(compare(in.Pred, x, y)))

		case ir.OpBr:
			return in.Operand(0).(*ir.Block), Value{}, false, nil

		case ir.OpCondBr:
			c, err := m.eval(fr, in.Operand(0))
			if err != nil {
				return nil, Value{}, false, err
			}
			if c.Int != 0 {
				return in.Operand(1).(*ir.Block), Value{}, false, nil
			}
			return in.Operand(2).(*ir.Block), Value{}, false, nil

		case ir.OpSwitch:
			v, err := m.eval(fr, in.Operand(0))
			if err != nil {
				return nil, Value{}, false, err
			}
			dst := in.DefaultDest()
			for ci := 0; ci < in.NumCases(); ci++ {
				if c, b := in.Case(ci); c.Int == v.Int {
					dst = b
					break
				}
			}
			return dst, Value{}, false, nil

		case ir.OpRet:
			if in.NumOperands() == 0 {
				return nil, Value{}, true, nil
			}
			v, err := m.eval(fr, in.Operand(0))
			if err != nil {
				return nil, Value{}, false, err
			}
			return nil, v, true, nil

		default:
			return nil, Value{}, false, errors.Unsupported(errors.PhaseRun,
				"instruction "+in.Op.String())
		}
	}
	return nil, Value{}, false, errors.New(errors.PhaseRun, errors.KindInvalidIR,
		"block %s in @%s fell off its end", bb.Name(), fr.fn.Name())
}

func (m *Machine) execElemAddr(fr *frame, in *ir.Instr) (Value, error) {
	base, err := m.eval(fr, in.Operand(0))
	if err != nil {
		return Value{}, err
	}
	indices := make([]int64, in.NumOperands()-1)
	for k := 1; k < in.NumOperands(); k++ {
		iv, err := m.eval(fr, in.Operand(k))
		if err != nil {
			return Value{}, err
		}
		indices[k-1] = iv.Int
	}
	pt := in.Operand(0).Type().(*ir.PointerType)
	base.Off += elemOffset(pt.Elem, indices)
	return base, nil
}

// elemOffset turns an index chain into a byte delta: the first index
// strides whole cells, the rest descend into aggregates.
func elemOffset(elem ir.Type, indices []int64) int64 {
	off := indices[0] * int64(ir.Sizeof(elem))
	cur := elem
	for _, ix := range indices[1:] {
		switch t := cur.(type) {
		case *ir.ArrayType:
			off += ix * int64(ir.Sizeof(t.Elem))
			cur = t.Elem
		case *ir.StructType:
			off += int64(ir.Offsetof(t, int(ix)))
			cur = t.Fields[ix]
		}
	}
	return off
}

func (m *Machine) execCall(ctx context.Context, fr *frame, in *ir.Instr) (Value, error) {
	target := in.CalleeFunc()
	if target == nil {
		cv, err := m.eval(fr, in.Callee())
		if err != nil {
			return Value{}, err
		}
		if cv.Kind != KindFunc || cv.Fn == nil {
			return Value{}, errors.BadAddress(fr.fn.Name(), "indirect call through a non-function value")
		}
		target = cv.Fn
	}
	args := make([]Value, in.NumOperands()-1)
	for k := 1; k < in.NumOperands(); k++ {
		v, err := m.eval(fr, in.Operand(k))
		if err != nil {
			return Value{}, err
		}
		args[k-1] = v
	}
	return m.call(ctx, target, fr.node, args)
}

func (m *Machine) callBuiltin(ctx context.Context, fn *ir.Function, node int, args []Value) (Value, error) {
	switch fn.Name() {
	case m.locateFn:
		if len(args) != 1 || args[0].Kind != KindPtr {
			return Value{}, errors.BadAddress(fn.Name(), "locate of a non-pointer value")
		}
		return IntValue(int64(args[0].Node)), nil

	case m.invokeFn:
		return m.invokeRemote(ctx, fn.Name(), node, args)
	}
	return Value{}, errors.Unsupported(errors.PhaseRun, "external function @"+fn.Name()+" has no body")
}

// invokeRemote marshals the input buffer to the target node, re-enters
// the interpreter on the unit there, and copies the output buffer
// back. Signature: (node, unit, in, inSize, out, outSize) -> i16.
func (m *Machine) invokeRemote(ctx context.Context, name string, node int, args []Value) (Value, error) {
	if len(args) != 6 {
		return Value{}, errors.New(errors.PhaseRun, errors.KindInternal,
			"%s takes 6 arguments, got %d", name, len(args))
	}
	loc := int(args[0].Int)
	unit := args[1].Fn
	inBuf, inSize := args[2], args[3].Int
	outBuf, outSize := args[4], args[5].Int
	if loc < 0 || loc >= len(m.nodes) {
		return Value{}, errors.BadAddress(name, "invoke on node %d of %d", loc, len(m.nodes))
	}
	if unit == nil {
		return Value{}, errors.NotFound(errors.PhaseRun, "invoked unit")
	}

	remoteIn := Value{Kind: KindPtr, Node: loc, Off: m.alloc(loc, int(inSize), 8)}
	remoteOut := Value{Kind: KindPtr, Node: loc, Off: m.alloc(loc, int(outSize), 8)}
	if err := m.copyBytes(name, remoteIn, inBuf, inSize); err != nil {
		return Value{}, err
	}

	Logger().Debug("remote invoke",
		zap.String("unit", unit.Name()),
		zap.Int("node", loc),
		zap.Int64("in", inSize),
		zap.Int64("out", outSize))

	code, err := m.call(ctx, unit, loc, []Value{remoteIn, remoteOut})
	if err != nil {
		return Value{}, err
	}
	if err := m.copyBytes(name, outBuf, remoteOut, outSize); err != nil {
		return Value{}, err
	}
	return code, nil
}

// eval resolves an operand to its runtime value in fr.
func (m *Machine) eval(fr *frame, v ir.Value) (Value, error) {
	switch v := v.(type) {
	case *ir.Const:
		return m.constValue(fr.node, v)
	case *ir.Global:
		return m.globalAddr(fr.node, v), nil
	case *ir.Function:
		return Value{Kind: KindFunc, Fn: v}, nil
	case *ir.Argument, *ir.Instr:
		if rv, ok := fr.vals[v]; ok {
			return rv, nil
		}
		return Value{}, errors.New(errors.PhaseRun, errors.KindInternal,
			"value %s evaluated before definition in @%s", v, fr.fn.Name())
	}
	return Value{}, errors.New(errors.PhaseRun, errors.KindInternal, "cannot evaluate %s", v)
}

func (m *Machine) constValue(node int, c *ir.Const) (Value, error) {
	switch c.Kind {
	case ir.ConstInt:
		return IntValue(c.Int), nil
	case ir.ConstFloat:
		return FloatValue(c.Float), nil
	case ir.ConstNull, ir.ConstUndef:
		if _, ok := c.Type().(*ir.PointerType); ok {
			return Value{Kind: KindPtr, Node: node}, nil
		}
		return Value{}, nil
	case ir.ConstElemAddr:
		base, err := m.evalConstBase(node, c.Base)
		if err != nil {
			return Value{}, err
		}
		pt := c.Base.Type().(*ir.PointerType)
		base.Off += elemOffset(pt.Elem, c.Indices)
		return base, nil
	case ir.ConstCast:
		base, err := m.evalConstBase(node, c.Base)
		if err != nil {
			return Value{}, err
		}
		return castValue(base, c.Type()), nil
	}
	return Value{}, errors.New(errors.PhaseRun, errors.KindInternal, "cannot evaluate constant %s", c)
}

func (m *Machine) evalConstBase(node int, v ir.Value) (Value, error) {
	switch v := v.(type) {
	case *ir.Const:
		return m.constValue(node, v)
	case *ir.Global:
		return m.globalAddr(node, v), nil
	case *ir.Function:
		return Value{Kind: KindFunc, Fn: v}, nil
	}
	return Value{}, errors.New(errors.PhaseRun, errors.KindInternal, "non-constant base %s", v)
}

// castValue reinterprets v as t: pointer casts keep the address,
// numeric casts convert, integer narrowing truncates.
func castValue(v Value, t ir.Type) Value {
	switch t := t.(type) {
	case *ir.IntType:
		if v.Kind == KindFloat {
			return IntValue(truncate(int64(v.Float), t.Bits))
		}
		return IntValue(truncate(v.Int, t.Bits))
	case *ir.FloatType:
		if v.Kind == KindInt {
			return FloatValue(float64(v.Int))
		}
		return v
	}
	return v
}

func binOp(op ir.Op, x, y int64, bits int) int64 {
	switch op {
	case ir.OpAdd:
		return x + y
	case ir.OpSub:
		return x - y
	case ir.OpMul:
		return x * y
	case ir.OpAnd:
		return x & y
	case ir.OpOr:
		return x | y
	case ir.OpXor:
		return x ^ y
	case ir.OpShl:
		if uint64(y) >= 64 {
			return 0
		}
		return x << uint64(y)
	case ir.OpLShr:
		if uint64(y) >= 64 {
			return 0
		}
		// Shift the value's own width, not its sign extension.
		u := uint64(x)
		if bits < 64 {
			u &= 1<<uint(bits) - 1
		}
		return int64(u >> uint64(y))
	}
	return 0
}

func compare(pred ir.Pred, x, y Value) bool {
	if x.Kind == KindPtr || y.Kind == KindPtr {
		// Pointer equality compares the full (node, offset) pair.
		switch pred {
		case ir.PredEQ:
			return x.Node == y.Node && x.Off == y.Off
		case ir.PredNE:
			return x.Node != y.Node || x.Off != y.Off
		}
		x, y = IntValue(x.Off), IntValue(y.Off)
	}
	a, b := x.Int, y.Int
	ua, ub := uint64(a), uint64(b)
	switch pred {
	case ir.PredEQ:
		return a == b
	case ir.PredNE:
		return a != b
	case ir.PredSLT:
		return a < b
	case ir.PredSLE:
		return a <= b
	case ir.PredSGT:
		return a > b
	case ir.PredSGE:
		return a >= b
	case ir.PredULT:
		return ua < ub
	case ir.PredULE:
		return ua <= ub
	case ir.PredUGT:
		return ua > ub
	case ir.PredUGE:
		return ua >= ub
	}
	return false
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
