package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/maqayum/grappa/errors"
	"github.com/maqayum/grappa/ir"
)

// Extract outlines a grown region into a standalone unit and rewrites
// the host function to dispatch to it remotely. The unit takes two
// opaque buffer pointers (marshaled inputs, outputs) and returns a
// small integer selecting which region exit was taken; the caller
// switches on that code to re-enter its original control flow.
//
// The caller-side sequence is: store the live inputs into a stack
// aggregate, resolve the owning node of the region's target pointer,
// invoke the unit there, reload the live outputs, then branch to the
// original successor of whichever exit fired.
func (e *Engine) Extract(c *Context, r *Candidate) (*ir.Function, error) {
	bbIn := r.Entry.Block()
	oldFn := bbIn.Parent()
	mod := oldFn.Module()
	name := fmt.Sprintf("%s.d%d", oldFn.Name(), r.ID)
	short := fmt.Sprintf("d%d", r.ID)

	if len(r.Exits) == 0 {
		return nil, errors.Unsupported(errors.PhaseExtract,
			fmt.Sprintf("region d%d in @%s has no exits", r.ID, oldFn.Name()))
	}

	// Materialize boundaries as block boundaries: the entry starts its
	// block, every exit boundary starts a block of its own.
	if bbIn.First() != r.Entry {
		bbIn = bbIn.SplitBefore(r.Entry, short+".eblk")
	}
	for _, ex := range r.Exits {
		if ex.Frontier.Block() == ex.Boundary.Block() {
			ex.Frontier.Block().SplitBefore(ex.Boundary, short+".exit")
		}
	}

	// Collect the region block set.
	inRegion := make(map[*ir.Block]bool)
	var regionBlocks []*ir.Block
	addBlock := func(bb *ir.Block) {
		if !inRegion[bb] {
			inRegion[bb] = true
			regionBlocks = append(regionBlocks, bb)
		}
	}
	addBlock(bbIn)
	for _, ex := range r.Exits {
		addBlock(ex.Frontier.Block())
	}
	r.Visit(func(in *ir.Instr) { addBlock(in.Block()) })

	definedInRegion := func(v ir.Value) bool {
		if in, ok := v.(*ir.Instr); ok {
			return inRegion[in.Block()]
		}
		return false
	}
	definedInCaller := func(v ir.Value) bool {
		switch v := v.(type) {
		case *ir.Argument:
			return true
		case *ir.Instr:
			return !inRegion[v.Block()]
		}
		return false
	}

	// Live sets, in first-discovery order.
	inputs, outputs := newValueSet(), newValueSet()
	r.Visit(func(in *ir.Instr) {
		for _, o := range in.Operands() {
			if definedInCaller(o) {
				inputs.add(o)
			}
		}
		for _, u := range in.Users() {
			if !definedInRegion(u) {
				outputs.add(in)
				break
			}
		}
	})

	r.NumInputs, r.NumOutputs = inputs.len(), outputs.len()

	inTypes := make([]ir.Type, inputs.len())
	for i, v := range inputs.items {
		inTypes[i] = v.Type()
	}
	outTypes := make([]ir.Type, outputs.len())
	for i, v := range outputs.items {
		outTypes[i] = v.Type()
	}
	inStruct := &ir.StructType{Fields: inTypes}
	outStruct := &ir.StructType{Fields: outTypes}

	// Unit shell: i16 f(ptr<i8>, ptr<i8>).
	sig := &ir.FuncType{
		Params: []ir.Type{ir.PtrTo(ir.I8), ir.PtrTo(ir.I8)},
		Ret:    ir.I16,
	}
	newFn := mod.NewFunc(name, sig, ir.AttrInternal, "in", "out")
	bbEntry := newFn.NewBlock(short + ".entry")

	inArg := bbEntry.Append(ir.NewCast("struct.in", newFn.Params[0], ir.PtrTo(inStruct)))
	outArg := bbEntry.Append(ir.NewCast("struct.out", newFn.Params[1], ir.PtrTo(outStruct)))

	clones, vm := ir.CloneBlocksInto(newFn, regionBlocks, ".clone")

	// Load each input at unit entry; the clone map substitutes the
	// loads for the caller-defined values inside the unit.
	for i, v := range inputs.items {
		gep := bbEntry.Append(ir.NewElemAddr("", inArg, true, ir.NewInt(ir.I64, 0), ir.NewInt(ir.I32, int64(i))))
		vm[v] = bbEntry.Append(ir.NewLoad("in."+valueName(v, i), gep))
	}
	bbEntry.Append(ir.NewBr(vm[bbIn].(*ir.Block)))

	bbRet := newFn.NewBlock(short + ".ret")
	phiRet := ir.NewPhi("ret.phi", ir.I16)
	bbRet.Append(phiRet)
	bbRet.Append(ir.NewRet(phiRet))

	// Store each output into its field at the end of its (cloned)
	// defining block, before control can leave the region.
	for i, v := range outputs.items {
		cv := vm[v].(*ir.Instr)
		cb := cv.Block()
		gep := ir.NewElemAddr("out."+valueName(v, i), outArg, true, ir.NewInt(ir.I64, 0), ir.NewInt(ir.I32, int64(i)))
		cb.InsertBefore(gep, cb.Terminator())
		cb.InsertBefore(ir.NewStore(cv, gep), cb.Terminator())
	}

	// Caller side: dispatch block in front of the region entry. Any
	// predecessor outside the region now branches here instead.
	bbCall := oldFn.NewBlockBefore(short+".call", bbIn)
	for _, pb := range bbIn.Preds() {
		if !inRegion[pb] {
			replaceBlockOperand(pb.Terminator(), bbIn, bbCall)
		}
	}

	inAlloca := bbCall.Append(ir.NewAlloca(short+".struct.in", inStruct))
	outAlloca := bbCall.Append(ir.NewAlloca(short+".struct.out", outStruct))
	for i, v := range inputs.items {
		gep := bbCall.Append(ir.NewElemAddr(short+".gep.in"+fmt.Sprint(i), inAlloca, true, ir.NewInt(ir.I64, 0), ir.NewInt(ir.I32, int64(i))))
		bbCall.Append(ir.NewStore(v, gep))
	}

	targetCast := bbCall.Append(ir.NewCast(short+".target", r.Target, ir.PtrIn(ir.I8, ir.SpaceGlobal)))
	loc := bbCall.Append(ir.NewCall(short+".loc", e.locateFn, targetCast))
	inBuf := bbCall.Append(ir.NewCast("", inAlloca, ir.PtrTo(ir.I8)))
	outBuf := bbCall.Append(ir.NewCast("", outAlloca, ir.PtrTo(ir.I8)))
	code := bbCall.Append(ir.NewCall(short+".code", e.invokeFn,
		loc, newFn,
		inBuf, ir.NewInt(ir.I64, int64(ir.Sizeof(inStruct))),
		outBuf, ir.NewInt(ir.I64, int64(ir.Sizeof(outStruct)))))

	// Reload outputs before the dispatch switch; their caller-side
	// uses are rewritten after the clone remap below so the unit's
	// internal uses keep the original def.
	outLoads := make([]*ir.Instr, outputs.len())
	for i, v := range outputs.items {
		gep := bbCall.Append(ir.NewElemAddr("", outAlloca, true, ir.NewInt(ir.I64, 0), ir.NewInt(ir.I32, int64(i))))
		outLoads[i] = bbCall.Append(ir.NewLoad("out."+valueName(v, i), gep))
	}

	exitSwitch := ir.NewSwitch(code, r.Exits[0].Boundary.Block())

	// Wire each exit: a distinct code per exit edge, a switch case
	// back to the original boundary block, the exit-code phi in the
	// unit's return block, and phi-predecessor fixup in the boundary
	// block. A frontier block feeding two exits routes extra edges
	// through stub blocks so the return phi keeps one entry per edge.
	phiPreds := make(map[*ir.Block]bool)
	for i, ex := range r.Exits {
		bbExit := ex.Boundary.Block()
		exitCode := ir.NewInt(ir.I16, int64(i))
		bbPred := vm[ex.Frontier.Block()].(*ir.Block)

		retTarget := bbRet
		if phiPreds[bbPred] {
			stub := newFn.NewBlockAfter(fmt.Sprintf("%s.exit%d", short, i), bbPred)
			stub.Append(ir.NewBr(bbRet))
			retTarget = stub
			bbPred = stub
		}
		phiPreds[bbPred] = true
		phiRet.AddIncoming(exitCode, bbPred)

		exitSwitch.AddCase(exitCode, bbExit)

		for _, in := range bbExit.Instrs {
			if in.Op != ir.OpPhi {
				break
			}
			for k := 0; k < in.NumOperands(); k += 2 {
				if pb, ok := in.Operand(k + 1).(*ir.Block); ok && pb == ex.Frontier.Block() {
					in.SetOperand(k+1, bbCall)
				}
			}
		}

		// Cloned branches that targeted this boundary block leave the
		// region; remap sends them to the return path.
		vm[bbExit] = retTarget
	}
	bbCall.Append(exitSwitch)

	ir.Remap(clones, vm)

	// Rewrite every outside use of each output to read the reloaded
	// value. Uses inside the dying region blocks are left alone; they
	// are detached wholesale below.
	for i, v := range outputs.items {
		for _, u := range v.(*ir.Instr).Users() {
			if !definedInRegion(u) && u != outLoads[i] {
				replaceValueOperand(u, v, outLoads[i])
			}
		}
	}

	if err := e.checkIntegrity(oldFn, newFn, r, inRegion, bbCall); err != nil {
		return nil, err
	}

	oldFn.RemoveBlocks(regionBlocks)

	Logger().Info("region extracted",
		zap.String("func", oldFn.Name()),
		zap.Int("region", r.ID),
		zap.String("unit", name),
		zap.Int("blocks", len(regionBlocks)),
		zap.Int("inputs", inputs.len()),
		zap.Int("outputs", outputs.len()),
		zap.Int("exits", len(r.Exits)))
	return newFn, nil
}

// checkIntegrity verifies no value or control edge crosses the
// freshly cut unit boundary. A violation is an analysis defect, never
// a recoverable condition.
func (e *Engine) checkIntegrity(oldFn, newFn *ir.Function, r *Candidate, inRegion map[*ir.Block]bool, bbCall *ir.Block) error {
	for _, bb := range newFn.Blocks {
		for _, in := range bb.Instrs {
			for _, u := range in.Users() {
				if u.Block() == nil || u.Block().Parent() != newFn {
					return errors.EscapedUse(oldFn.Name(), r.ID, in.String())
				}
			}
		}
		for _, sb := range bb.Succs() {
			if sb.Parent() != newFn {
				return errors.EscapedBranch(oldFn.Name(), r.ID, sb.Name())
			}
		}
	}
	for bb := range inRegion {
		for _, pb := range bb.Preds() {
			if !inRegion[pb] && pb != bbCall {
				return errors.EscapedBranch(oldFn.Name(), r.ID, bb.Name())
			}
		}
	}
	return nil
}

// replaceBlockOperand rewrites branch-target operands of a terminator.
func replaceBlockOperand(t *ir.Instr, old, now *ir.Block) {
	for k := 0; k < t.NumOperands(); k++ {
		if t.Operand(k) == ir.Value(old) {
			t.SetOperand(k, now)
		}
	}
}

// replaceValueOperand rewrites every slot of u holding old.
func replaceValueOperand(u *ir.Instr, old, now ir.Value) {
	for k := 0; k < u.NumOperands(); k++ {
		if u.Operand(k) == old {
			u.SetOperand(k, now)
		}
	}
}

// valueName returns a stable field-name suffix for a value.
func valueName(v ir.Value, i int) string {
	if n := v.Name(); n != "" {
		return n
	}
	return fmt.Sprint(i)
}
