package ir

import "fmt"

// Verify checks the module for structural validity: name uniqueness,
// block shape, terminator placement, operand typing, phi and
// predecessor agreement, and use-list symmetry.
func (m *Module) Verify() error {
	if err := m.verifyNames(); err != nil {
		return err
	}
	if err := m.verifyGlobals(); err != nil {
		return err
	}
	for _, f := range m.Funcs {
		if err := m.verifyFunc(f); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) verifyNames() error {
	seen := make(map[string]bool)
	for _, g := range m.Globals {
		if seen[g.name] {
			return fmt.Errorf("duplicate module-level name @%s", g.name)
		}
		seen[g.name] = true
	}
	for _, f := range m.Funcs {
		if seen[f.name] {
			return fmt.Errorf("duplicate module-level name @%s", f.name)
		}
		seen[f.name] = true
	}
	return nil
}

func (m *Module) verifyGlobals() error {
	for _, g := range m.Globals {
		if g.Init == nil {
			continue
		}
		if !TypesEqual(g.Init.Type(), g.Elem) {
			return fmt.Errorf("global @%s: init type %s does not match %s", g.name, g.Init.Type(), g.Elem)
		}
	}
	return nil
}

func (m *Module) verifyFunc(f *Function) error {
	if f.IsDecl() {
		return nil
	}
	if len(f.Entry().Preds()) > 0 {
		return fmt.Errorf("func @%s: entry block %s has predecessors", f.name, f.Entry().name)
	}
	if err := verifyLocalNames(f); err != nil {
		return err
	}
	for _, b := range f.Blocks {
		if err := m.verifyBlock(f, b); err != nil {
			return err
		}
	}
	return verifyUses(f)
}

func verifyLocalNames(f *Function) error {
	seen := make(map[string]bool)
	claim := func(name string) error {
		if name == "" {
			return nil
		}
		if seen[name] {
			return fmt.Errorf("func @%s: duplicate name %s", f.name, name)
		}
		seen[name] = true
		return nil
	}
	for _, p := range f.Params {
		if err := claim("%" + p.name); err != nil {
			return err
		}
	}
	for _, b := range f.Blocks {
		if err := claim(b.name); err != nil {
			return err
		}
		for _, in := range b.Instrs {
			if err := claim("%" + in.name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Module) verifyBlock(f *Function, b *Block) error {
	if len(b.Instrs) == 0 {
		return fmt.Errorf("func @%s: block %s is empty", f.name, b.name)
	}
	if b.Terminator() == nil {
		return fmt.Errorf("func @%s: block %s does not end in a terminator", f.name, b.name)
	}
	inPhis := true
	for k, in := range b.Instrs {
		if in.blk != b {
			return fmt.Errorf("func @%s: block %s: instruction %q has wrong parent", f.name, b.name, in)
		}
		if in.Op.IsTerminator() && k != len(b.Instrs)-1 {
			return fmt.Errorf("func @%s: block %s: terminator %q before end of block", f.name, b.name, in)
		}
		if in.Op == OpPhi && !inPhis {
			return fmt.Errorf("func @%s: block %s: phi %q after non-phi instruction", f.name, b.name, in)
		}
		if in.Op != OpPhi {
			inPhis = false
		}
		if err := m.verifyInstr(f, b, in); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) verifyInstr(f *Function, b *Block, in *Instr) error {
	fail := func(format string, args ...interface{}) error {
		msg := fmt.Sprintf(format, args...)
		return fmt.Errorf("func @%s: block %s: %q: %s", f.name, b.name, in, msg)
	}

	for _, o := range in.ops {
		if o == nil {
			return fail("nil operand")
		}
		switch o := o.(type) {
		case *Instr:
			if o.blk == nil || o.blk.fn != f {
				return fail("operand %%%s defined outside function", o.name)
			}
		case *Argument:
			if o.fn != f {
				return fail("operand %%%s is a parameter of another function", o.name)
			}
		case *Block:
			if o.fn != f {
				return fail("operand block %s belongs to another function", o.name)
			}
		case *Function:
			if m.FuncByName(o.name) != o {
				return fail("operand @%s is not in this module", o.name)
			}
		case *Global:
			if m.GlobalByName(o.name) != o {
				return fail("operand @%s is not in this module", o.name)
			}
		}
	}

	switch in.Op {
	case OpAlloca:
		if in.Allocated == nil || len(in.ops) != 0 {
			return fail("malformed alloca")
		}
	case OpLoad:
		pt, ok := in.ops[0].Type().(*PointerType)
		if !ok {
			return fail("load address is %s, not a pointer", in.ops[0].Type())
		}
		if !TypesEqual(in.Type(), pt.Elem) {
			return fail("load type %s does not match pointee %s", in.Type(), pt.Elem)
		}
	case OpStore:
		pt, ok := in.ops[1].Type().(*PointerType)
		if !ok {
			return fail("store address is %s, not a pointer", in.ops[1].Type())
		}
		if !TypesEqual(in.ops[0].Type(), pt.Elem) {
			return fail("stored %s into pointee %s", in.ops[0].Type(), pt.Elem)
		}
	case OpElemAddr:
		t, err := ElemAddrType(in.ops[0].Type(), in.ops[1:])
		if err != nil {
			return fail("%v", err)
		}
		if !TypesEqual(t, in.Type()) {
			return fail("result type %s, computed %s", in.Type(), t)
		}
	case OpCast:
		if !castable(in.ops[0].Type(), in.Type()) {
			return fail("cannot cast %s to %s", in.ops[0].Type(), in.Type())
		}
	case OpCall:
		sig := CallSig(in.ops[0])
		if sig == nil {
			return fail("callee is %s, not a function", in.ops[0].Type())
		}
		if len(in.ops)-1 != len(sig.Params) {
			return fail("%d arguments for %d parameters", len(in.ops)-1, len(sig.Params))
		}
		for k, p := range sig.Params {
			if !TypesEqual(in.ops[k+1].Type(), p) {
				return fail("argument %d is %s, parameter is %s", k, in.ops[k+1].Type(), p)
			}
		}
		if !TypesEqual(in.Type(), sig.Ret) {
			return fail("result type %s does not match return %s", in.Type(), sig.Ret)
		}
	case OpPhi:
		preds := b.Preds()
		if in.NumIncoming() != len(preds) {
			return fail("%d incoming edges for %d predecessors", in.NumIncoming(), len(preds))
		}
		predSet := make(map[*Block]bool, len(preds))
		for _, p := range preds {
			predSet[p] = true
		}
		seen := make(map[*Block]bool)
		for k := 0; k < in.NumIncoming(); k++ {
			v, pb := in.Incoming(k)
			if pb == nil || !predSet[pb] {
				return fail("incoming edge from non-predecessor")
			}
			if seen[pb] {
				return fail("duplicate incoming edge from %s", pb.name)
			}
			seen[pb] = true
			if !TypesEqual(v.Type(), in.Type()) {
				return fail("incoming value from %s is %s, phi is %s", pb.name, v.Type(), in.Type())
			}
		}
	case OpAdd, OpSub, OpMul, OpAnd, OpOr, OpXor, OpShl, OpLShr:
		if _, ok := in.ops[0].Type().(*IntType); !ok {
			return fail("operand is %s, not an integer", in.ops[0].Type())
		}
		if !TypesEqual(in.ops[0].Type(), in.ops[1].Type()) || !TypesEqual(in.Type(), in.ops[0].Type()) {
			return fail("operand types %s and %s disagree", in.ops[0].Type(), in.ops[1].Type())
		}
	case OpICmp:
		if !TypesEqual(in.ops[0].Type(), in.ops[1].Type()) {
			return fail("compared types %s and %s disagree", in.ops[0].Type(), in.ops[1].Type())
		}
		switch in.ops[0].Type().(type) {
		case *IntType, *PointerType:
		default:
			return fail("cannot compare %s", in.ops[0].Type())
		}
	case OpBr:
		if _, ok := in.ops[0].(*Block); !ok || len(in.ops) != 1 {
			return fail("malformed branch")
		}
	case OpCondBr:
		if len(in.ops) != 3 {
			return fail("malformed conditional branch")
		}
		if !TypesEqual(in.ops[0].Type(), I1) {
			return fail("condition is %s, not i1", in.ops[0].Type())
		}
		for _, o := range in.ops[1:] {
			if _, ok := o.(*Block); !ok {
				return fail("branch target is not a block")
			}
		}
	case OpSwitch:
		st, ok := in.ops[0].Type().(*IntType)
		if !ok {
			return fail("switch value is %s, not an integer", in.ops[0].Type())
		}
		if in.DefaultDest() == nil {
			return fail("switch without default destination")
		}
		for k := 0; k < in.NumCases(); k++ {
			c, dst := in.Case(k)
			if c == nil || dst == nil {
				return fail("malformed switch case %d", k)
			}
			if !TypesEqual(c.Type(), st) {
				return fail("case %d is %s, switch value is %s", k, c.Type(), st)
			}
		}
	case OpRet:
		if _, void := f.Sig.Ret.(*VoidType); void {
			if len(in.ops) != 0 {
				return fail("value returned from void function")
			}
		} else {
			if len(in.ops) != 1 {
				return fail("missing return value")
			}
			if !TypesEqual(in.ops[0].Type(), f.Sig.Ret) {
				return fail("returned %s from function returning %s", in.ops[0].Type(), f.Sig.Ret)
			}
		}
	default:
		return fail("unknown opcode")
	}
	return nil
}

func castable(from, to Type) bool {
	switch from.(type) {
	case *IntType, *FloatType:
		switch to.(type) {
		case *IntType, *FloatType:
			return true
		}
	case *PointerType:
		_, ok := to.(*PointerType)
		return ok
	}
	return false
}

// verifyUses checks that operand edges and use lists mirror each
// other in both directions.
func verifyUses(f *Function) error {
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			for k, o := range in.ops {
				found := false
				for _, u := range o.allUses() {
					if u.user == in && u.idx == k {
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("func @%s: %q operand %d missing from use list of %s", f.name, in, k, ref(o))
				}
			}
		}
	}
	check := func(v Value) error {
		for _, u := range v.allUses() {
			if u.idx >= len(u.user.ops) || u.user.ops[u.idx] != v {
				return fmt.Errorf("func @%s: stale use record on %s", f.name, ref(v))
			}
		}
		return nil
	}
	for _, p := range f.Params {
		if err := check(p); err != nil {
			return err
		}
	}
	for _, b := range f.Blocks {
		if err := check(b); err != nil {
			return err
		}
		for _, in := range b.Instrs {
			if err := check(in); err != nil {
				return err
			}
		}
	}
	return nil
}
