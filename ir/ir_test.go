package ir

import (
	"testing"
)

func TestUseLists(t *testing.T) {
	m := NewModule("t")
	f := m.NewFunc("f", &FuncType{Params: []Type{I64, I64}, Ret: I64}, 0, "x", "y")
	bb := f.NewBlock("entry")
	x, y := f.Params[0], f.Params[1]
	sum := bb.Append(NewBinOp(OpAdd, "sum", x, y))
	dbl := bb.Append(NewBinOp(OpAdd, "dbl", sum, sum))
	bb.Append(NewRet(dbl))

	if err := m.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if n := sum.NumUses(); n != 2 {
		t.Errorf("sum has %d uses, want 2 (both slots of dbl)", n)
	}
	if users := sum.Users(); len(users) != 1 || users[0] != dbl {
		t.Errorf("sum.Users() = %v, want [dbl]", users)
	}
	if n := x.NumUses(); n != 1 {
		t.Errorf("x has %d uses, want 1", n)
	}

	ReplaceAllUsesWith(sum, x)
	if n := sum.NumUses(); n != 0 {
		t.Errorf("sum has %d uses after replacement, want 0", n)
	}
	if n := x.NumUses(); n != 3 {
		t.Errorf("x has %d uses after replacement, want 3", n)
	}
	if dbl.Operand(0) != x || dbl.Operand(1) != x {
		t.Errorf("dbl operands = %s, %s, want %%x twice", dbl.Operand(0), dbl.Operand(1))
	}
	if err := m.Verify(); err != nil {
		t.Fatalf("Verify after replacement: %v", err)
	}
}

func TestSetOperand_UpdatesBothSides(t *testing.T) {
	m := NewModule("t")
	f := m.NewFunc("f", &FuncType{Params: []Type{I64, I64}, Ret: I64}, 0, "x", "y")
	bb := f.NewBlock("entry")
	x, y := f.Params[0], f.Params[1]
	sum := bb.Append(NewBinOp(OpAdd, "sum", x, x))
	bb.Append(NewRet(sum))

	sum.SetOperand(1, y)
	if n := x.NumUses(); n != 1 {
		t.Errorf("x has %d uses, want 1", n)
	}
	if n := y.NumUses(); n != 1 {
		t.Errorf("y has %d uses, want 1", n)
	}
	if err := m.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestSplitBefore(t *testing.T) {
	m := NewModule("t")
	f := m.NewFunc("f", &FuncType{Params: []Type{I64}, Ret: I64}, 0, "x")
	bb := f.NewBlock("entry")
	x := f.Params[0]
	a := bb.Append(NewBinOp(OpAdd, "a", x, NewInt(I64, 1)))
	b := bb.Append(NewBinOp(OpAdd, "b", a, NewInt(I64, 2)))
	bb.Append(NewRet(b))

	nb := bb.SplitBefore(b, "tail")
	if nb == nil {
		t.Fatal("SplitBefore returned nil")
	}
	if len(bb.Instrs) != 2 || bb.Terminator() == nil || bb.Terminator().Op != OpBr {
		t.Errorf("head block is %v, want [a, br tail]", bb.Instrs)
	}
	if len(nb.Instrs) != 2 || nb.First() != b {
		t.Errorf("tail block is %v, want [b, ret]", nb.Instrs)
	}
	if b.Block() != nb {
		t.Errorf("b's parent is %v, want tail", b.Block())
	}
	if f.Blocks[1] != nb {
		t.Errorf("tail not placed after head in layout")
	}
	if err := m.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestSplitBefore_FirstInstruction(t *testing.T) {
	m := NewModule("t")
	f := m.NewFunc("f", &FuncType{Ret: Void}, 0)
	bb := f.NewBlock("entry")
	r := bb.Append(NewRet(nil))

	if nb := bb.SplitBefore(r, "tail"); nb != nil {
		t.Errorf("split at first instruction returned %v, want nil", nb)
	}
}

func TestSplitBefore_RetargetsPhis(t *testing.T) {
	m := NewModule("t")
	f := m.NewFunc("f", &FuncType{Params: []Type{I64, I1}, Ret: I64}, 0, "x", "c")
	x, c := f.Params[0], f.Params[1]

	entry := f.NewBlock("entry")
	left := f.NewBlock("left")
	join := f.NewBlock("join")
	entry.Append(NewCondBr(c, left, join))
	a := left.Append(NewBinOp(OpAdd, "a", x, NewInt(I64, 1)))
	br := left.Append(NewBr(join))
	phi := join.Append(NewPhi("r", I64))
	phi.AddIncoming(x, entry)
	phi.AddIncoming(a, left)
	join.Append(NewRet(phi))

	tail := left.SplitBefore(br, "left.tail")
	if v := phi.IncomingFor(tail); v != a {
		t.Errorf("phi edge from split tail = %v, want %%a", v)
	}
	if v := phi.IncomingFor(left); v != nil {
		t.Errorf("phi still has an edge from the head block: %v", v)
	}
	if err := m.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestCloneBlocksInto(t *testing.T) {
	m := NewModule("t")
	f := m.NewFunc("f", &FuncType{Params: []Type{I64}, Ret: I64}, 0, "x")
	x := f.Params[0]
	b1 := f.NewBlock("head")
	b2 := f.NewBlock("done")
	a := b1.Append(NewBinOp(OpAdd, "a", x, NewInt(I64, 1)))
	b1.Append(NewBr(b2))
	b2.Append(NewRet(a))

	dst := m.NewFunc("g", &FuncType{Params: []Type{I64}, Ret: I64}, AttrInternal, "y")
	clones, vm := CloneBlocksInto(dst, f.Blocks, ".c")
	vm[x] = dst.Params[0]
	Remap(clones, vm)

	if len(clones) != 2 || clones[0].Name() != "head.c" || clones[1].Name() != "done.c" {
		t.Fatalf("clones = %v, want [head.c, done.c]", clones)
	}
	ca := clones[0].First()
	if ca == a {
		t.Fatal("clone aliases the original instruction")
	}
	if ca.Operand(0) != dst.Params[0] {
		t.Errorf("clone operand = %s, want remapped parameter", ca.Operand(0))
	}
	if got := clones[0].Terminator().Operand(0); got != Value(clones[1]) {
		t.Errorf("clone branches to %s, want done.c", got)
	}
	if got := clones[1].Terminator().Operand(0); got != Value(ca) {
		t.Errorf("clone returns %s, want the cloned add", got)
	}
	// The original is untouched.
	if a.Operand(0) != x || b1.Terminator().Operand(0) != Value(b2) {
		t.Error("cloning mutated the source blocks")
	}
	if err := m.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestRemoveBlocks(t *testing.T) {
	m := NewModule("t")
	f := m.NewFunc("f", &FuncType{Params: []Type{I64}, Ret: I64}, 0, "x")
	x := f.Params[0]
	entry := f.NewBlock("entry")
	dead := f.NewBlock("dead")
	entry.Append(NewRet(x))
	dead.Append(NewBinOp(OpAdd, "d", x, NewInt(I64, 1)))
	dead.Append(NewRet(x))

	f.RemoveBlocks([]*Block{dead})
	if len(f.Blocks) != 1 || f.Blocks[0] != entry {
		t.Fatalf("blocks after removal = %v, want [entry]", f.Blocks)
	}
	// Operand edges from the dead instructions are dropped, so x is
	// referenced only by the surviving ret.
	if n := x.NumUses(); n != 1 {
		t.Errorf("x has %d uses after removal, want 1", n)
	}
	if err := m.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestPredsSuccs_Deduplicate(t *testing.T) {
	m := NewModule("t")
	f := m.NewFunc("f", &FuncType{Params: []Type{I1}, Ret: Void}, 0, "c")
	entry := f.NewBlock("entry")
	done := f.NewBlock("done")
	entry.Append(NewCondBr(f.Params[0], done, done))
	done.Append(NewRet(nil))

	if succs := entry.Succs(); len(succs) != 1 || succs[0] != done {
		t.Errorf("Succs = %v, want [done]", succs)
	}
	if preds := done.Preds(); len(preds) != 1 || preds[0] != entry {
		t.Errorf("Preds = %v, want [entry]", preds)
	}
}

func TestModule_String(t *testing.T) {
	m := NewModule("dht")
	m.NewGlobal("bias", I64, NewInt(I64, 3))
	m.NewFunc("grow", &FuncType{Params: []Type{PtrIn(I8, SpaceGlobal)}, Ret: I64}, 0)
	f := m.NewFunc("f", &FuncType{Params: []Type{I64}, Ret: I64}, AttrAsync, "x")
	bb := f.NewBlock("entry")
	r := bb.Append(NewBinOp(OpAdd, "r", f.Params[0], NewInt(I64, 1)))
	bb.Append(NewRet(r))

	want := `module "dht" format "1.0.0"

global @bias i64 = 3

declare @grow(ptr<i8, global>) -> i64

func @f(%x: i64) -> i64 [async] {
entry:
  %r = add i64 %x, 1
  ret %r
}
`
	if got := m.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestInstr_String(t *testing.T) {
	m := NewModule("t")
	f := m.NewFunc("f", &FuncType{Params: []Type{PtrTo(I64), I1}, Ret: Void}, 0, "p", "c")
	p, c := f.Params[0], f.Params[1]
	entry := f.NewBlock("entry")
	next := f.NewBlock("next")

	tests := []struct {
		in   *Instr
		want string
	}{
		{NewAlloca("buf", I64), "%buf = alloca i64"},
		{NewLoad("v", p), "%v = load %p"},
		{NewStore(NewInt(I64, 7), p), "store 7, %p"},
		{NewElemAddr("q", p, true, NewInt(I64, 2)), "%q = elemaddr inbounds %p, 2"},
		{NewCast("w", p, PtrTo(I8)), "%w = cast %p to ptr<i8>"},
		{NewBinOp(OpLShr, "h", NewInt(I64, 8), NewInt(I64, 2)), "%h = lshr i64 8, 2"},
		{NewICmp("", PredULT, NewInt(I64, 1), NewInt(I64, 2)), "icmp ult i64 1, 2"},
		{NewCondBr(c, entry, next), "br %c, entry, next"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
