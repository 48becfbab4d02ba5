package engine

import (
	stderrors "errors"
	"testing"

	"github.com/maqayum/grappa/errors"
	"github.com/maqayum/grappa/ir"
)

// growFirst grows a region from the first anchor of fn and returns it.
func growFirst(t *testing.T, ctx *Context, fn *ir.Function) *Candidate {
	t.Helper()
	anchors := ctx.AnalyzeFunction(fn)
	if len(anchors) == 0 {
		t.Fatalf("@%s has no anchors", fn.Name())
	}
	r := ctx.NewCandidate(ctx.Provenance(anchors[0]), anchors[0])
	if err := r.Expand(ctx); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	return r
}

func ownedCount(ctx *Context, r *Candidate) int {
	n := 0
	for _, id := range ctx.owner {
		if id == r.ID {
			n++
		}
	}
	return n
}

func TestExpand_StraightLine(t *testing.T) {
	m := mustParse(t, `module "r" format "1.0.0"

func @inc(%cell: ptr<i64, global>, %delta: i64) -> i64 [async] {
entry:
  %old = load %cell
  %new = add i64 %old, %delta
  store %new, %cell
  ret %new
}
`)
	fn := m.FuncByName("inc")
	ctx := NewContext()
	r := growFirst(t, ctx, fn)

	if n := ownedCount(ctx, r); n != 3 {
		t.Errorf("region owns %d instructions, want 3", n)
	}
	if len(r.Exits) != 1 {
		t.Fatalf("region has %d exits, want 1", len(r.Exits))
	}
	ex := r.Exits[0]
	if ex.Boundary.Op != ir.OpRet {
		t.Errorf("exit boundary is %s, want ret", ex.Boundary.Op)
	}
	if ex.Frontier.Op != ir.OpStore {
		t.Errorf("exit frontier is %s, want store", ex.Frontier.Op)
	}
	if ctx.Owner(ex.Boundary) != nil {
		t.Error("ret claimed into the region")
	}
}

func TestExpand_DiamondMerge(t *testing.T) {
	m := mustParse(t, `module "r" format "1.0.0"

func @clamp(%cell: ptr<i64, global>, %lo: i64) -> i64 [async] {
entry:
  %v = load %cell
  %c = icmp slt i64 %v, %lo
  br %c, low, high
low:
  br join
high:
  %dbl = add i64 %v, %v
  br join
join:
  %r = phi i64 [%lo, low] [%dbl, high]
  store %r, %cell
  ret %r
}
`)
	fn := m.FuncByName("clamp")
	ctx := NewContext()
	r := growFirst(t, ctx, fn)

	// The merge block is deferred while only one arm is sealed, then
	// absorbed once both are; its tentative exit must be gone.
	if n := ownedCount(ctx, r); n != 8 {
		t.Errorf("region owns %d instructions, want 8", n)
	}
	if len(r.Exits) != 1 {
		t.Fatalf("region has %d exits, want 1: %v", len(r.Exits), r.Exits)
	}
	if r.Exits[0].Boundary.Op != ir.OpRet {
		t.Errorf("exit boundary is %s, want ret", r.Exits[0].Boundary.Op)
	}
	phi := m.FuncByName("clamp").BlockByName("join").First()
	if ctx.Owner(phi) != r {
		t.Error("merge-block phi not absorbed")
	}
}

func TestExpand_AmbiguousMerge(t *testing.T) {
	m := mustParse(t, `module "r" format "1.0.0"

func @amb(%cell: ptr<i64, global>, %p: ptr<i64>, %n: i64) -> i64 [async] {
entry:
  %v = load %cell
  %c = icmp slt i64 %v, %n
  br %c, a, b
a:
  store %v, %cell
  br join
b:
  store %n, %cell
  br join
join:
  %x = load %p
  ret %x
}
`)
	fn := m.FuncByName("amb")
	ctx := NewContext()
	anchors := ctx.AnalyzeFunction(fn)
	r := ctx.NewCandidate(ctx.Provenance(anchors[0]), anchors[0])

	err := r.Expand(ctx)
	if err == nil {
		t.Fatal("expected ambiguous merge error, got nil")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseGrow, Kind: errors.KindAmbiguousMerge}) {
		t.Errorf("got %v, want an ambiguous merge error", err)
	}
	var de *errors.Error
	if stderrors.As(err, &de) && de.Region != r.ID {
		t.Errorf("error names region %d, want %d", de.Region, r.ID)
	}
}

func TestExpand_DisjointRegions(t *testing.T) {
	m := mustParse(t, `module "r" format "1.0.0"

func @two(%a: ptr<i64, global>, %b: ptr<i64, global>) -> i64 [async] {
entry:
  %x = load %a
  br second
second:
  %y = load %b
  %s = add i64 %x, %y
  ret %s
}
`)
	fn := m.FuncByName("two")
	ctx := NewContext()
	anchors := ctx.AnalyzeFunction(fn)
	if len(anchors) != 2 {
		t.Fatalf("anchors = %d, want 2", len(anchors))
	}

	r0 := ctx.NewCandidate(ctx.Provenance(anchors[0]), anchors[0])
	if err := r0.Expand(ctx); err != nil {
		t.Fatalf("Expand r0: %v", err)
	}
	r1 := ctx.NewCandidate(ctx.Provenance(anchors[1]), anchors[1])
	if err := r1.Expand(ctx); err != nil {
		t.Fatalf("Expand r1: %v", err)
	}

	// A load rooted in a different global base bounds the first region,
	// then seeds its own.
	if len(r0.Exits) != 1 || r0.Exits[0].Boundary != anchors[1] {
		t.Errorf("r0 exit = %v, want boundary at %%y", r0.Exits)
	}
	if got := ctx.Owner(anchors[1]); got != r1 {
		t.Errorf("%%y owned by %v, want r1", got)
	}
	for in, id := range ctx.owner {
		if id == r0.ID && ctx.Owner(in) != r0 {
			t.Errorf("ownership map inconsistent for %s", in)
		}
	}
	if n0, n1 := ownedCount(ctx, r0), ownedCount(ctx, r1); n0 != 2 || n1 != 2 {
		t.Errorf("owned counts = %d, %d, want 2, 2", n0, n1)
	}
}

func TestExpand_CallValidity(t *testing.T) {
	m := mustParse(t, `module "r" format "1.0.0"

declare @notify(i64) -> void [unbound]
declare @pure(i64) -> i64 [readnone]
declare @pinned(i64) -> void

func @callmix(%cell: ptr<i64, global>) -> void [async] {
entry:
  %v = load %cell
  call @notify(%v)
  %d = call @pure(%v)
  store %d, %cell
  call @pinned(%d)
  ret
}
`)
	fn := m.FuncByName("callmix")
	ctx := NewContext()
	r := growFirst(t, ctx, fn)

	// Unbound and readnone callees are absorbed; a pinned callee with
	// possible memory effects bounds the region.
	if n := ownedCount(ctx, r); n != 4 {
		t.Errorf("region owns %d instructions, want 4", n)
	}
	if len(r.Exits) != 1 {
		t.Fatalf("region has %d exits, want 1", len(r.Exits))
	}
	if r.Exits[0].Boundary.CalleeFunc() != m.FuncByName("pinned") {
		t.Errorf("exit boundary = %s, want the @pinned call", r.Exits[0].Boundary)
	}
}

func TestVisit_BoundedByExits(t *testing.T) {
	m := mustParse(t, `module "r" format "1.0.0"

func @route(%cell: ptr<i64, global>, %p: ptr<i64>, %n: i64) -> i64 [async] {
entry:
  %v = load %cell
  %c = icmp slt i64 %v, %n
  br %c, hot, cold
hot:
  store %n, %cell
  ret %n
cold:
  %w = load %p
  ret %w
}
`)
	fn := m.FuncByName("route")
	ctx := NewContext()
	r := growFirst(t, ctx, fn)

	if len(r.Exits) != 2 {
		t.Fatalf("region has %d exits, want 2", len(r.Exits))
	}

	var visited []*ir.Instr
	r.Visit(func(in *ir.Instr) { visited = append(visited, in) })
	if len(visited) != 4 {
		t.Fatalf("visited %d instructions, want 4", len(visited))
	}
	for _, in := range visited {
		if ctx.Owner(in) != r {
			t.Errorf("visited %s outside the region", in)
		}
		if _, isExit := r.exitIdx[in]; isExit {
			t.Errorf("visited exit boundary %s", in)
		}
	}
	w := instrByName(t, fn, "w")
	if ctx.Owner(w) != nil {
		t.Error("cold-path load absorbed despite unknown provenance")
	}
}
