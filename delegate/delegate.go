package delegate

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
	"go.uber.org/zap"

	"github.com/maqayum/grappa/delegate/internal/engine"
	"github.com/maqayum/grappa/ir"
)

// FunctionMatcher determines if a function should be included or excluded.
type FunctionMatcher = engine.FunctionMatcher

// Report is the outcome of a Transform run: per-function analysis
// summaries plus the instruction ownership map for diagnostics.
type Report = engine.Report

// FuncSummary describes the analysis of one function.
type FuncSummary = engine.FuncSummary

// RegionSummary describes one grown region.
type RegionSummary = engine.RegionSummary

// Config configures the extraction transform.
type Config struct {
	// LocateFn and InvokeFn name the runtime primitives the rewritten
	// caller uses. They default to "resolve_location" and
	// "invoke_remote"; if the module does not declare them the
	// transform analyzes and reports but never rewrites.
	LocateFn string
	InvokeFn string

	// Seeds adds task entry points beyond the functions carrying the
	// async attribute; Skip blocks functions from the walk entirely.
	Seeds FunctionMatcher
	Skip  FunctionMatcher

	// AnalyzeOnly grows and reports regions without rewriting.
	AnalyzeOnly bool
}

// Transform greedily extracts remote-execution regions from m.
//
// For every function reachable from a task entry point, each memory
// access rooted at a global-remote pointer seeds a region that grows
// to the maximal extent valid for execution at that pointer's owning
// node. Each region is then outlined into a standalone unit and the
// original code replaced with a remote dispatch.
//
// The module is mutated in place. On a fatal error (ambiguous merge,
// boundary integrity violation) it returns the error with no further
// mutation; partial extraction is never emitted for the failing
// function.
func Transform(m *ir.Module, cfg Config) (*Report, error) {
	eng := engine.New(engine.Config{
		Seeds:       cfg.Seeds,
		Skip:        cfg.Skip,
		LocateFn:    cfg.LocateFn,
		InvokeFn:    cfg.InvokeFn,
		AnalyzeOnly: cfg.AnalyzeOnly,
	})
	return eng.Run(m)
}

// SetLogger configures the package's logger. The default is a no-op
// logger.
func SetLogger(l *zap.Logger) { engine.SetLogger(l) }

// WriteMetrics writes the pass counters in Prometheus text format.
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
}
