package ir

import (
	"strings"
	"testing"
)

func TestVerify_Violations(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Module
		wantMsg string
	}{
		{
			"entry with predecessor",
			func() *Module {
				m := NewModule("t")
				f := m.NewFunc("f", &FuncType{Ret: Void}, 0)
				entry := f.NewBlock("entry")
				entry.Append(NewBr(entry))
				return m
			},
			"has predecessors",
		},
		{
			"empty block",
			func() *Module {
				m := NewModule("t")
				f := m.NewFunc("f", &FuncType{Ret: Void}, 0)
				f.NewBlock("entry")
				return m
			},
			"is empty",
		},
		{
			"missing terminator",
			func() *Module {
				m := NewModule("t")
				f := m.NewFunc("f", &FuncType{Params: []Type{I64}, Ret: Void}, 0, "x")
				bb := f.NewBlock("entry")
				bb.Append(NewBinOp(OpAdd, "a", f.Params[0], NewInt(I64, 1)))
				return m
			},
			"does not end in a terminator",
		},
		{
			"terminator before end",
			func() *Module {
				m := NewModule("t")
				f := m.NewFunc("f", &FuncType{Params: []Type{I64}, Ret: Void}, 0, "x")
				bb := f.NewBlock("entry")
				bb.Append(NewRet(nil))
				bb.Append(NewRet(nil))
				return m
			},
			"before end of block",
		},
		{
			"phi after non-phi",
			func() *Module {
				m := NewModule("t")
				f := m.NewFunc("f", &FuncType{Params: []Type{I64}, Ret: Void}, 0, "x")
				bb := f.NewBlock("entry")
				bb.Append(NewBinOp(OpAdd, "a", f.Params[0], NewInt(I64, 1)))
				bb.Append(NewPhi("p", I64))
				bb.Append(NewRet(nil))
				return m
			},
			"after non-phi",
		},
		{
			"phi edge count",
			func() *Module {
				m := NewModule("t")
				f := m.NewFunc("f", &FuncType{Params: []Type{I64}, Ret: I64}, 0, "x")
				entry := f.NewBlock("entry")
				next := f.NewBlock("next")
				entry.Append(NewBr(next))
				next.Append(NewPhi("p", I64))
				next.Append(NewRet(f.Params[0]))
				return m
			},
			"incoming edges",
		},
		{
			"store type mismatch",
			func() *Module {
				m := NewModule("t")
				f := m.NewFunc("f", &FuncType{Params: []Type{PtrTo(I64)}, Ret: Void}, 0, "p")
				bb := f.NewBlock("entry")
				bb.Append(NewStore(NewInt(I32, 1), f.Params[0]))
				bb.Append(NewRet(nil))
				return m
			},
			"stored i32 into pointee i64",
		},
		{
			"call argument mismatch",
			func() *Module {
				m := NewModule("t")
				callee := m.NewFunc("g", &FuncType{Params: []Type{I64}, Ret: Void}, 0)
				f := m.NewFunc("f", &FuncType{Ret: Void}, 0)
				bb := f.NewBlock("entry")
				bb.Append(NewCall("", callee, NewInt(I32, 1)))
				bb.Append(NewRet(nil))
				return m
			},
			"argument 0 is i32",
		},
		{
			"condition not i1",
			func() *Module {
				m := NewModule("t")
				f := m.NewFunc("f", &FuncType{Params: []Type{I64}, Ret: Void}, 0, "x")
				entry := f.NewBlock("entry")
				done := f.NewBlock("done")
				entry.Append(NewCondBr(f.Params[0], done, done))
				done.Append(NewRet(nil))
				return m
			},
			"condition is i64",
		},
		{
			"return type mismatch",
			func() *Module {
				m := NewModule("t")
				f := m.NewFunc("f", &FuncType{Params: []Type{I32}, Ret: I64}, 0, "x")
				bb := f.NewBlock("entry")
				bb.Append(NewRet(f.Params[0]))
				return m
			},
			"returned i32",
		},
		{
			"duplicate module name",
			func() *Module {
				m := NewModule("t")
				m.NewFunc("f", &FuncType{Ret: Void}, 0)
				m.NewGlobal("f", I64, nil)
				return m
			},
			"duplicate module-level name",
		},
		{
			"duplicate local name",
			func() *Module {
				m := NewModule("t")
				f := m.NewFunc("f", &FuncType{Params: []Type{I64}, Ret: Void}, 0, "x")
				bb := f.NewBlock("entry")
				bb.Append(NewBinOp(OpAdd, "x", f.Params[0], NewInt(I64, 1)))
				bb.Append(NewRet(nil))
				return m
			},
			"duplicate name %x",
		},
		{
			"global init type mismatch",
			func() *Module {
				m := NewModule("t")
				m.NewGlobal("g", I64, NewInt(I32, 1))
				return m
			},
			"init type i32",
		},
		{
			"value from another function",
			func() *Module {
				m := NewModule("t")
				other := m.NewFunc("g", &FuncType{Params: []Type{I64}, Ret: Void}, 0, "y")
				ob := other.NewBlock("entry")
				ob.Append(NewRet(nil))
				f := m.NewFunc("f", &FuncType{Ret: I64}, 0)
				bb := f.NewBlock("entry")
				bb.Append(NewRet(other.Params[0]))
				return m
			},
			"parameter of another function",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Verify()
			if err == nil {
				t.Fatal("Verify accepted an invalid module")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Verify() = %q, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestVerify_Valid(t *testing.T) {
	m := NewModule("t")
	g := m.NewGlobal("table", &ArrayType{Elem: I64, Len: 4}, nil)
	f := m.NewFunc("f", &FuncType{Params: []Type{I64}, Ret: I64}, AttrAsync, "i")
	bb := f.NewBlock("entry")
	slot := bb.Append(NewElemAddr("slot", g, true, NewInt(I64, 0), f.Params[0]))
	v := bb.Append(NewLoad("v", slot))
	bb.Append(NewRet(v))

	if err := m.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}
