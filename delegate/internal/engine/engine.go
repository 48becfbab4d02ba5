package engine

import (
	"github.com/VictoriaMetrics/metrics"
	"go.uber.org/zap"

	"github.com/maqayum/grappa/errors"
	"github.com/maqayum/grappa/ir"
)

// Default names of the runtime primitives the rewritten caller
// depends on. The module must declare them to enable extraction;
// without them the engine still analyzes and grows regions, it just
// never rewrites.
const (
	DefaultLocateFn = "resolve_location"
	DefaultInvokeFn = "invoke_remote"
)

// FunctionMatcher determines if a function should be included or excluded.
// Used for the seed/skip configuration.
type FunctionMatcher interface {
	MatchFunction(name string) bool
}

// Config configures the extraction engine.
type Config struct {
	Seeds       FunctionMatcher
	Skip        FunctionMatcher
	LocateFn    string
	InvokeFn    string
	AnalyzeOnly bool
}

// Engine orchestrates the delegate extraction pipeline over one
// module: provenance analysis, region growth and outlining, in that
// order per function, functions drained from a deduplicating
// worklist seeded with the task entry points.
type Engine struct {
	seeds       FunctionMatcher
	skip        FunctionMatcher
	locateName  string
	invokeName  string
	analyzeOnly bool

	locateFn *ir.Function
	invokeFn *ir.Function
}

// New creates an extraction engine with the given config.
func New(cfg Config) *Engine {
	locate := cfg.LocateFn
	if locate == "" {
		locate = DefaultLocateFn
	}
	invoke := cfg.InvokeFn
	if invoke == "" {
		invoke = DefaultInvokeFn
	}
	return &Engine{
		seeds:       cfg.Seeds,
		skip:        cfg.Skip,
		locateName:  locate,
		invokeName:  invoke,
		analyzeOnly: cfg.AnalyzeOnly,
	}
}

// RegionSummary describes one grown region.
type RegionSummary struct {
	ID        int
	Target    string
	Blocks    int
	Instrs    int
	Exits     int
	Inputs    int
	Outputs   int
	Extracted bool
	Unit      string
}

// FuncSummary describes the analysis of one function.
type FuncSummary struct {
	Func         string
	Anchors      int
	StackAnchors int
	Regions      []RegionSummary
}

// Report is the outcome of a whole-module run.
type Report struct {
	Funcs     []FuncSummary
	Ownership map[*ir.Instr]int
	Context   *Context
}

var (
	functionsAnalyzed = metrics.GetOrCreateCounter("grappa_functions_analyzed_total")
	anchorsFound      = metrics.GetOrCreateCounter("grappa_anchors_total")
	regionsGrown      = metrics.GetOrCreateCounter("grappa_regions_grown_total")
	regionsExtracted  = metrics.GetOrCreateCounter("grappa_regions_extracted_total")
	fatalAborts       = metrics.GetOrCreateCounter("grappa_fatal_aborts_total")
)

// Run transforms the module. All regions of a function are grown
// before any of them is extracted, and one function is finished
// before the next starts, since extraction rewrites the control flow
// later growth would otherwise observe. A fatal growth or extraction
// error aborts the whole run with nothing further mutated.
func (e *Engine) Run(m *ir.Module) (*Report, error) {
	e.locateFn = m.FuncByName(e.locateName)
	e.invokeFn = m.FuncByName(e.invokeName)
	extracting := !e.analyzeOnly && e.locateFn != nil && e.invokeFn != nil
	if !extracting && !e.analyzeOnly {
		Logger().Info("runtime primitives not declared, analyzing only",
			zap.String("locate", e.locateName),
			zap.String("invoke", e.invokeName))
	}

	ctx := NewContext()
	report := &Report{Ownership: ctx.owner, Context: ctx}

	worklist := newUniqueQueue[*ir.Function]()
	for _, fn := range m.Funcs {
		if fn.IsDecl() || e.skipped(fn) {
			continue
		}
		if fn.Attrs.Has(ir.AttrAsync) || (e.seeds != nil && e.seeds.MatchFunction(fn.Name())) {
			worklist.push(fn)
		}
	}

	for !worklist.empty() {
		fn := worklist.pop()
		sum, regions, err := e.analyzeOne(ctx, fn)
		if err != nil {
			fatalAborts.Inc()
			return nil, err
		}

		// Whatever this function calls gets the same treatment, once.
		fn.Instrs(func(in *ir.Instr) bool {
			if in.Op == ir.OpCall {
				if callee := in.CalleeFunc(); callee != nil && !callee.IsDecl() && !e.skipped(callee) {
					worklist.push(callee)
				}
			}
			return true
		})

		if extracting {
			for i, r := range regions {
				unit, err := e.Extract(ctx, r)
				if err != nil {
					fatalAborts.Inc()
					return nil, err
				}
				sum.Regions[i].Extracted = true
				sum.Regions[i].Unit = unit.Name()
				sum.Regions[i].Inputs = r.NumInputs
				sum.Regions[i].Outputs = r.NumOutputs
				regionsExtracted.Inc()
			}
		}
		report.Funcs = append(report.Funcs, *sum)
	}
	return report, nil
}

// analyzeOne runs provenance analysis and region growth for one
// function, returning the regions grown for it in creation order.
func (e *Engine) analyzeOne(ctx *Context, fn *ir.Function) (*FuncSummary, []*Candidate, error) {
	anchors := ctx.AnalyzeFunction(fn)
	functionsAnalyzed.Inc()
	anchorsFound.Add(len(anchors))

	sum := &FuncSummary{Func: fn.Name(), Anchors: len(anchors)}
	var regions []*Candidate

	for _, a := range anchors {
		if prior := ctx.Owner(a); prior != nil {
			Logger().Debug("anchor already claimed",
				zap.String("anchor", a.String()),
				zap.Int("region", prior.ID))
			continue
		}
		p := ctx.Provenance(a)
		switch Classify(p) {
		case ClassGlobal:
			r := ctx.NewCandidate(p, a)
			if err := r.Expand(ctx); err != nil {
				return nil, nil, err
			}
			if err := e.sweepOwnership(ctx, fn, r); err != nil {
				return nil, nil, err
			}
			regions = append(regions, r)
			regionsGrown.Inc()
			sum.Regions = append(sum.Regions, e.summarize(ctx, r))
		case ClassStack:
			// Recognized but not grown; stack-rooted delegates are a
			// future extension.
			sum.StackAnchors++
		}
	}
	return sum, regions, nil
}

// sweepOwnership asserts every instruction the region traversal
// reaches is claimed by that region.
func (e *Engine) sweepOwnership(ctx *Context, fn *ir.Function, r *Candidate) error {
	var bad *ir.Instr
	r.Visit(func(in *ir.Instr) {
		if bad == nil && ctx.Owner(in) != r {
			bad = in
		}
	})
	if bad != nil {
		err := errors.Internal(errors.PhaseGrow, fn.Name(),
			"instruction reachable in region d%d but not owned by it: %s", r.ID, bad)
		err.Region = r.ID
		return err
	}
	return nil
}

func (e *Engine) summarize(ctx *Context, r *Candidate) RegionSummary {
	blocks := make(map[*ir.Block]bool)
	instrs := 0
	r.Visit(func(in *ir.Instr) {
		blocks[in.Block()] = true
		instrs++
	})
	return RegionSummary{
		ID:     r.ID,
		Target: r.Target.String(),
		Blocks: len(blocks),
		Instrs: instrs,
		Exits:  len(r.Exits),
	}
}

func (e *Engine) skipped(fn *ir.Function) bool {
	return e.skip != nil && e.skip.MatchFunction(fn.Name())
}
