package engine

import (
	"testing"
)

type nameMatcher string

func (m nameMatcher) MatchFunction(n string) bool { return string(m) == n }

const bumpModule = `module "dht" format "1.0.0"

declare @resolve_location(ptr<i8, global>) -> i64
declare @invoke_remote(i64, ptr<fn(ptr<i8>, ptr<i8>) -> i16>, ptr<i8>, i64, ptr<i8>, i64) -> i16

func @bump(%cell: ptr<i64, global>, %delta: i64) -> i64 [async] {
entry:
  %old = load %cell
  %new = add i64 %old, %delta
  store %new, %cell
  ret %new
}
`

func TestRun_EndToEnd(t *testing.T) {
	m := mustParse(t, bumpModule)

	report, err := New(Config{}).Run(m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := m.Verify(); err != nil {
		t.Fatalf("module invalid after run: %v\n%s", err, m)
	}

	if len(report.Funcs) != 1 {
		t.Fatalf("report covers %d functions, want 1", len(report.Funcs))
	}
	fs := report.Funcs[0]
	if fs.Func != "bump" || fs.Anchors != 2 {
		t.Errorf("summary = %+v, want bump with 2 anchors", fs)
	}
	if len(fs.Regions) != 1 {
		t.Fatalf("summary has %d regions, want 1", len(fs.Regions))
	}
	rs := fs.Regions[0]
	if !rs.Extracted || rs.Unit != "bump.d0" {
		t.Errorf("region = %+v, want extracted as bump.d0", rs)
	}
	if rs.Inputs != 2 || rs.Outputs != 1 || rs.Exits != 1 {
		t.Errorf("region shape = %+v, want 2 inputs, 1 output, 1 exit", rs)
	}
	if m.FuncByName("bump.d0") == nil {
		t.Error("unit missing from module")
	}
	if len(report.Ownership) == 0 {
		t.Error("ownership map empty")
	}
}

func TestRun_AnalyzeOnly(t *testing.T) {
	m := mustParse(t, bumpModule)
	before := m.String()

	report, err := New(Config{AnalyzeOnly: true}).Run(m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.String() != before {
		t.Error("analyze-only run mutated the module")
	}
	if m.FuncByName("bump.d0") != nil {
		t.Error("analyze-only run created a unit")
	}
	rs := report.Funcs[0].Regions[0]
	if rs.Extracted || rs.Unit != "" {
		t.Errorf("region = %+v, want not extracted", rs)
	}
}

func TestRun_MissingPrimitives(t *testing.T) {
	m := mustParse(t, `module "dht" format "1.0.0"

func @bump(%cell: ptr<i64, global>, %delta: i64) -> i64 [async] {
entry:
  %old = load %cell
  %new = add i64 %old, %delta
  store %new, %cell
  ret %new
}
`)

	report, err := New(Config{}).Run(m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.FuncByName("bump.d0") != nil {
		t.Error("unit created without runtime primitives")
	}
	if rs := report.Funcs[0].Regions[0]; rs.Extracted {
		t.Error("region reported extracted without runtime primitives")
	}
}

func TestRun_SeedsAndSkip(t *testing.T) {
	src := `module "dht" format "1.0.0"

func @plain(%cell: ptr<i64, global>) -> void {
entry:
  store 1, %cell
  ret
}

func @task(%cell: ptr<i64, global>) -> void [async] {
entry:
  store 2, %cell
  ret
}
`
	t.Run("seed matcher includes a non-task function", func(t *testing.T) {
		m := mustParse(t, src)
		report, err := New(Config{Seeds: nameMatcher("plain"), AnalyzeOnly: true}).Run(m)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		var names []string
		for _, fs := range report.Funcs {
			names = append(names, fs.Func)
		}
		if len(names) != 2 {
			t.Fatalf("analyzed %v, want both functions", names)
		}
	})

	t.Run("skip matcher excludes a task", func(t *testing.T) {
		m := mustParse(t, src)
		report, err := New(Config{Skip: nameMatcher("task"), AnalyzeOnly: true}).Run(m)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(report.Funcs) != 0 {
			t.Errorf("analyzed %d functions, want none", len(report.Funcs))
		}
	})
}

func TestRun_FollowsCallees(t *testing.T) {
	m := mustParse(t, `module "dht" format "1.0.0"

declare @resolve_location(ptr<i8, global>) -> i64
declare @invoke_remote(i64, ptr<fn(ptr<i8>, ptr<i8>) -> i16>, ptr<i8>, i64, ptr<i8>, i64) -> i16

func @driver(%cell: ptr<i64, global>) -> void [async] {
entry:
  call @helper(%cell)
  call @helper(%cell)
  ret
}

func @helper(%cell: ptr<i64, global>) -> void {
entry:
  store 1, %cell
  ret
}
`)
	report, err := New(Config{}).Run(m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := m.Verify(); err != nil {
		t.Fatalf("module invalid after run: %v\n%s", err, m)
	}

	if len(report.Funcs) != 2 {
		t.Fatalf("analyzed %d functions, want driver and helper once each", len(report.Funcs))
	}
	if report.Funcs[1].Func != "helper" {
		t.Errorf("second analyzed function = %s, want helper", report.Funcs[1].Func)
	}
	if m.FuncByName("helper.d0") == nil {
		t.Error("helper's region not extracted")
	}
}

func TestRun_StackAnchorsCounted(t *testing.T) {
	m := mustParse(t, `module "dht" format "1.0.0"

func @local(%n: i64) -> i64 [async] {
entry:
  %slot = alloca i64
  store %n, %slot
  %v = load %slot
  ret %v
}
`)
	report, err := New(Config{AnalyzeOnly: true}).Run(m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	fs := report.Funcs[0]
	if fs.Anchors != 2 || fs.StackAnchors != 2 {
		t.Errorf("anchors = %d with %d stack, want 2 and 2", fs.Anchors, fs.StackAnchors)
	}
	if len(fs.Regions) != 0 {
		t.Errorf("grew %d regions from stack anchors, want none", len(fs.Regions))
	}
}

func TestRun_AnchorClaimedOnce(t *testing.T) {
	// The second global access belongs to the region grown from the
	// first; it must not seed a region of its own.
	m := mustParse(t, `module "dht" format "1.0.0"

func @twice(%cell: ptr<i64, global>) -> i64 [async] {
entry:
  %v = load %cell
  store %v, %cell
  ret %v
}
`)
	report, err := New(Config{AnalyzeOnly: true}).Run(m)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	fs := report.Funcs[0]
	if fs.Anchors != 2 {
		t.Errorf("anchors = %d, want 2", fs.Anchors)
	}
	if len(fs.Regions) != 1 {
		t.Errorf("grew %d regions, want 1", len(fs.Regions))
	}
}

func TestRun_AbortOnAmbiguity(t *testing.T) {
	m := mustParse(t, `module "dht" format "1.0.0"

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
	report, err := New(Config{AnalyzeOnly: true}).Run(m)
	if err == nil {
		t.Fatal("expected ambiguous merge abort, got nil")
	}
	if report != nil {
		t.Error("report returned alongside a fatal error")
	}
}
