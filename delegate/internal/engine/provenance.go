package engine

import (
	"go.uber.org/zap"

	"github.com/maqayum/grappa/ir"
)

// Class categorizes the base value an address was derived from.
type Class int

const (
	ClassUnknown Class = iota
	ClassGlobal         // pointer tagged as owned by a single remote node
	ClassSymmetric      // pointer tagged as replicated on every node
	ClassStatic         // module-level variable
	ClassConst          // compile-time constant or block reference
	ClassStack          // local allocation or function parameter
)

func (c Class) String() string {
	switch c {
	case ClassGlobal:
		return "global"
	case ClassSymmetric:
		return "symmetric"
	case ClassStatic:
		return "static"
	case ClassConst:
		return "const"
	case ClassStack:
		return "stack"
	}
	return "unknown"
}

// Classify resolves the provenance class of a base value. The address
// space tag wins over the value's own form, so a parameter typed as a
// global pointer classifies global, not stack.
func Classify(v ir.Value) Class {
	if pt, ok := v.Type().(*ir.PointerType); ok {
		switch pt.Space {
		case ir.SpaceGlobal:
			return ClassGlobal
		case ir.SpaceSymmetric:
			return ClassSymmetric
		}
	}
	switch v := v.(type) {
	case *ir.Global:
		return ClassStatic
	case *ir.Const, *ir.Block:
		return ClassConst
	case *ir.Argument:
		return ClassStack
	case *ir.Instr:
		if v.Op == ir.OpAlloca {
			return ClassStack
		}
	}
	return ClassUnknown
}

// Search walks an address computation chain backward to the base
// value the address derives from.
//
// Indexing through a global-space pointer with a non-zero leading
// index produces a value that may name a different owning node, so
// such an instruction is its own provenance root rather than a
// pass-through. Indexing anywhere else, and zero-offset indexing at a
// global base, is transparent. A cast is transparent only when its
// source chain resolves to a pointer. Constant expressions are walked
// structurally under the same rules.
func Search(v ir.Value) ir.Value {
	switch v := v.(type) {
	case *ir.Instr:
		switch v.Op {
		case ir.OpElemAddr:
			if !v.InBounds {
				return v
			}
			base := v.Operand(0)
			if bt, ok := base.Type().(*ir.PointerType); ok && bt.Space == ir.SpaceGlobal {
				first, ok := v.Operand(1).(*ir.Const)
				if !ok || !first.IsZero() {
					return v
				}
			}
			return Search(base)
		case ir.OpCast:
			vv := Search(v.Operand(0))
			if _, ok := vv.Type().(*ir.PointerType); ok {
				return vv
			}
			return v
		}
	case *ir.Const:
		switch v.Kind {
		case ir.ConstElemAddr:
			if !v.InBounds {
				return v
			}
			if bt, ok := v.Base.Type().(*ir.PointerType); ok && bt.Space == ir.SpaceGlobal {
				if len(v.Indices) > 0 && v.Indices[0] != 0 {
					return v
				}
			}
			return Search(v.Base)
		case ir.ConstCast:
			vv := Search(v.Base)
			if _, ok := vv.Type().(*ir.PointerType); ok {
				return vv
			}
			return v
		}
	}
	return v
}

// Provenance returns the memoized base value for in, computing it on
// first request. Only instructions with an address operand have one;
// everything else returns nil.
func (c *Context) Provenance(in *ir.Instr) ir.Value {
	if p, ok := c.prov[in]; ok {
		return p
	}
	addr := in.Addr()
	if addr == nil {
		return nil
	}
	p := Search(addr)
	c.prov[in] = p
	return p
}

// AnalyzeFunction tags every load and store in fn with its provenance
// and returns the anchors in program order: accesses whose base
// resolves to a global-remote or stack-local value.
func (c *Context) AnalyzeFunction(fn *ir.Function) []*ir.Instr {
	var anchors []*ir.Instr
	fn.Instrs(func(in *ir.Instr) bool {
		p := c.Provenance(in)
		if p == nil {
			return true
		}
		switch Classify(p) {
		case ClassGlobal, ClassStack:
			anchors = append(anchors, in)
		}
		return true
	})
	Logger().Debug("provenance analyzed",
		zap.String("func", fn.Name()),
		zap.Int("anchors", len(anchors)))
	return anchors
}
