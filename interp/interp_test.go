package interp

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/maqayum/grappa/errors"
	"github.com/maqayum/grappa/ir"
	"github.com/maqayum/grappa/irtext"
)

func mustParse(t *testing.T, src string) *ir.Module {
	t.Helper()
	m, err := irtext.Parse(src)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	if err := m.Verify(); err != nil {
		t.Fatalf("verify fixture: %v", err)
	}
	return m
}

func TestRun_ControlFlow(t *testing.T) {
	m := mustParse(t, `module "m" format "1.0.0"

func @classify(%n: i64) -> i64 {
entry:
  %neg = icmp slt i64 %n, 0
  br %neg, below, check
below:
  br join
check:
  %zero = icmp eq i64 %n, 0
  br %zero, at, above
at:
  br join
above:
  br join
join:
  %r = phi i64 [-1, below] [0, at] [1, above]
  switch %r, other, [1, pos]
pos:
  %big = mul i64 %r, 100
  ret %big
other:
  ret %r
}
`)
	mc := New(m, Config{})
	tests := []struct {
		arg, want int64
	}{
		{-5, -1},
		{0, 0},
		{7, 100},
	}
	for _, tt := range tests {
		got, err := mc.Run(context.Background(), "classify", IntValue(tt.arg))
		if err != nil {
			t.Fatalf("Run(%d): %v", tt.arg, err)
		}
		if got.Int != tt.want {
			t.Errorf("classify(%d) = %d, want %d", tt.arg, got.Int, tt.want)
		}
	}
}

func TestRun_Memory(t *testing.T) {
	m := mustParse(t, `module "m" format "1.0.0"

global @bias i64 = 3

func @swap_sum(%x: i64, %y: i64) -> i64 {
entry:
  %a = alloca i64
  %b = alloca i64
  store %x, %a
  store %y, %b
  %va = load %a
  %vb = load %b
  %s = add i64 %va, %vb
  %e = load @bias
  %r = add i64 %s, %e
  ret %r
}
`)
	mc := New(m, Config{})
	got, err := mc.Run(context.Background(), "swap_sum", IntValue(4), IntValue(5))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Int != 12 {
		t.Errorf("swap_sum(4, 5) = %d, want 12", got.Int)
	}
}

func TestRun_Aggregates(t *testing.T) {
	m := mustParse(t, `module "m" format "1.0.0"

func @pair(%p: ptr<{i64, i16}>) -> i64 {
entry:
  %f0 = elemaddr inbounds %p, 0, 0
  store 40, %f0
  %f1 = elemaddr inbounds %p, 0, 1
  store 2, %f1
  %a = load %f0
  %b = load %f1
  %w = cast %b to i64
  %s = add i64 %a, %w
  ret %s
}
`)
	mc := New(m, Config{})
	cell := mc.Alloc(0, &ir.StructType{Fields: []ir.Type{ir.I64, ir.I16}})
	got, err := mc.Run(context.Background(), "pair", cell)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Int != 42 {
		t.Errorf("pair() = %d, want 42", got.Int)
	}
	v, err := mc.Load(cell, ir.I64)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v.Int != 40 {
		t.Errorf("first field = %d, want 40", v.Int)
	}
}

func TestRun_CrossNode(t *testing.T) {
	m := mustParse(t, `module "m" format "1.0.0"

func @bump(%cell: ptr<i64, global>, %delta: i64) -> i64 {
entry:
  %old = load %cell
  %new = add i64 %old, %delta
  store %new, %cell
  ret %new
}
`)
	mc := New(m, Config{Nodes: 4})
	cell := mc.Alloc(2, ir.I64)
	if err := mc.Store(cell, IntValue(10), ir.I64); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := mc.Run(context.Background(), "bump", cell, IntValue(5))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Int != 15 {
		t.Errorf("bump = %d, want 15", got.Int)
	}
	v, err := mc.Load(cell, ir.I64)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v.Int != 15 {
		t.Errorf("remote cell = %d, want 15", v.Int)
	}
}

func TestRun_LocateBuiltin(t *testing.T) {
	m := mustParse(t, `module "m" format "1.0.0"

declare @resolve_location(ptr<i8, global>) -> i64

func @where(%p: ptr<i8, global>) -> i64 {
entry:
  %n = call @resolve_location(%p)
  ret %n
}
`)
	mc := New(m, Config{Nodes: 8})
	cell := mc.Alloc(5, ir.I8)
	got, err := mc.Run(context.Background(), "where", cell)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.Int != 5 {
		t.Errorf("where = %d, want 5", got.Int)
	}
}

func TestRun_StepLimit(t *testing.T) {
	m := mustParse(t, `module "m" format "1.0.0"

func @spin() -> void {
entry:
  br loop
loop:
  %x = add i64 1, 1
  br loop
}
`)
	mc := New(m, Config{StepLimit: 100})
	_, err := mc.Run(context.Background(), "spin")
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRun, Kind: errors.KindStepLimit}) {
		t.Errorf("got %v, want a step limit error", err)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	m := mustParse(t, `module "m" format "1.0.0"

func @spin() -> void {
entry:
  br loop
loop:
  br loop
}
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mc := New(m, Config{})
	if _, err := mc.Run(ctx, "spin"); !stderrors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestRun_BadAddress(t *testing.T) {
	m := mustParse(t, `module "m" format "1.0.0"

func @deref(%p: ptr<i64>) -> i64 {
entry:
  %v = load %p
  ret %v
}
`)
	mc := New(m, Config{})
	_, err := mc.Run(context.Background(), "deref", Value{Kind: KindPtr, Node: 0, Off: 0})
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRun, Kind: errors.KindBadAddress}) {
		t.Errorf("got %v, want a bad address error", err)
	}
}

func TestRun_MissingFunction(t *testing.T) {
	m := mustParse(t, `module "m" format "1.0.0"`)
	mc := New(m, Config{})
	_, err := mc.Run(context.Background(), "nope")
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRun, Kind: errors.KindNotFound}) {
		t.Errorf("got %v, want a not found error", err)
	}
}

func TestRun_ExternalWithoutBody(t *testing.T) {
	m := mustParse(t, `module "m" format "1.0.0"

declare @mystery() -> void

func @f() -> void {
entry:
  call @mystery()
  ret
}
`)
	mc := New(m, Config{})
	_, err := mc.Run(context.Background(), "f")
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRun, Kind: errors.KindUnsupported}) {
		t.Errorf("got %v, want an unsupported error", err)
	}
}
