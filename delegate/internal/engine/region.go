package engine

import (
	"go.uber.org/zap"

	"github.com/maqayum/grappa/errors"
	"github.com/maqayum/grappa/ir"
)

// Context is the per-transform analysis state shared by the builder,
// the extractor and the driver: the provenance memo, the region arena
// and the instruction ownership map. Regions reference each other by
// arena index, never by pointer.
type Context struct {
	prov    map[*ir.Instr]ir.Value
	owner   map[*ir.Instr]int
	regions []*Candidate
}

// NewContext returns an empty analysis context.
func NewContext() *Context {
	return &Context{
		prov:  make(map[*ir.Instr]ir.Value),
		owner: make(map[*ir.Instr]int),
	}
}

// Owner returns the region owning in, nil if unclaimed.
func (c *Context) Owner(in *ir.Instr) *Candidate {
	if id, ok := c.owner[in]; ok {
		return c.regions[id]
	}
	return nil
}

// Regions returns the arena of regions in creation order.
func (c *Context) Regions() []*Candidate { return c.regions }

// Exit is one recorded region boundary: the first instruction after
// the region on some path, and the last in-region instruction
// immediately preceding it.
type Exit struct {
	Boundary *ir.Instr
	Frontier *ir.Instr
}

// Candidate is a region of instructions grown from an anchor, all of
// whose memory effects touch the single target base.
type Candidate struct {
	ID        int
	Entry     *ir.Instr
	Target    ir.Value
	ValidPtrs map[ir.Value]bool
	Exits     []Exit

	// Filled in by Extract for reporting.
	NumInputs  int
	NumOutputs int

	exitIdx map[*ir.Instr]int // boundary instruction -> Exits index
	sealed  map[*ir.Block]bool
}

// NewCandidate allocates a region in the context's arena, seeded with
// the anchor's target base.
func (c *Context) NewCandidate(target ir.Value, entry *ir.Instr) *Candidate {
	r := &Candidate{
		ID:        len(c.regions),
		Entry:     entry,
		Target:    target,
		ValidPtrs: map[ir.Value]bool{target: true},
		exitIdx:   make(map[*ir.Instr]int),
		sealed:    make(map[*ir.Block]bool),
	}
	c.regions = append(c.regions, r)
	return r
}

// recordExit notes a boundary. Reaching a recorded boundary again
// through a different frontier has no defined merge semantics and is
// fatal.
func (r *Candidate) recordExit(boundary, frontier *ir.Instr) error {
	if k, ok := r.exitIdx[boundary]; ok {
		if r.Exits[k].Frontier != frontier {
			return errors.AmbiguousMerge(boundary.Block().Parent().Name(), r.ID, boundary.String())
		}
		return nil
	}
	r.exitIdx[boundary] = len(r.Exits)
	r.Exits = append(r.Exits, Exit{Boundary: boundary, Frontier: frontier})
	return nil
}

func (r *Candidate) eraseExit(boundary *ir.Instr) {
	k, ok := r.exitIdx[boundary]
	if !ok {
		return
	}
	r.Exits = append(r.Exits[:k], r.Exits[k+1:]...)
	delete(r.exitIdx, boundary)
	for b, i := range r.exitIdx {
		if i > k {
			r.exitIdx[b] = i - 1
		}
	}
}

// validIn reports whether in may execute at the region's target
// location. Instructions that cannot touch memory always qualify;
// memory effects qualify when their provenance is sanctioned or
// location-independent; calls qualify when the callee is marked
// unbound or reads nothing. A return is never absorbed so every
// region stays bounded by exits. An instruction owned by another
// region is a boundary by the disjointness rule.
func (r *Candidate) validIn(c *Context, in *ir.Instr) bool {
	if in.Op == ir.OpRet {
		return false
	}
	if o := c.Owner(in); o != nil && o != r {
		return false
	}
	if !in.MayTouchMemory() {
		return true
	}
	if p := c.Provenance(in); p != nil {
		if r.ValidPtrs[p] {
			return true
		}
		switch Classify(p) {
		case ClassSymmetric, ClassStatic, ClassConst:
			return true
		}
	} else if in.Op == ir.OpCall {
		if f := in.CalleeFunc(); f != nil && f.Attrs.Has(ir.AttrUnbound) {
			return true
		}
	} else {
		Logger().Debug("no provenance", zap.String("instr", in.String()))
	}
	return false
}

// Expand grows the region to its maximal extent, claiming
// instructions in the context's ownership map. Growth proceeds
// block-forward from the entry; a successor is absorbed only when its
// first instruction is valid and every one of its predecessors has
// been sealed into the region. Successors failing only the
// predecessor test go to a retry set and are reconsidered each time
// the worklist makes progress.
func (r *Candidate) Expand(c *Context) error {
	worklist := newUniqueQueue[*ir.Instr]()
	worklist.push(r.Entry)

	var tryAgain []*ir.Block
	inRetry := make(map[*ir.Block]bool)

	for !worklist.empty() {
		in := worklist.pop()
		bb := in.Block()
		k := indexIn(bb, in)

		for k < len(bb.Instrs) && r.validIn(c, bb.Instrs[k]) {
			c.owner[bb.Instrs[k]] = r.ID
			k++
		}

		if k == len(bb.Instrs) {
			r.sealed[bb] = true
			for _, sb := range bb.Succs() {
				target := sb.First()
				valid := r.validIn(c, target)

				if valid {
					for _, pb := range sb.Preds() {
						if !r.sealed[pb] {
							Logger().Debug("disallowing, unsealed predecessor",
								zap.String("block", sb.Name()),
								zap.String("pred", pb.Name()))
							if !inRetry[sb] {
								inRetry[sb] = true
								tryAgain = append(tryAgain, sb)
							}
							valid = false
						}
					}
				}

				if valid {
					// The block may carry a tentative exit from an
					// earlier deferral; absorption cancels it.
					r.eraseExit(target)
					if inRetry[sb] {
						delete(inRetry, sb)
						for i, tb := range tryAgain {
							if tb == sb {
								tryAgain = append(tryAgain[:i], tryAgain[i+1:]...)
								break
							}
						}
					}
					worklist.push(target)
				} else {
					if err := r.recordExit(target, bb.Terminator()); err != nil {
						return err
					}
				}
			}
		} else {
			if err := r.recordExit(bb.Instrs[k], bb.Instrs[k-1]); err != nil {
				return err
			}
		}

		// Rescan deferred merge blocks once the worklist drains; any
		// whose predecessors are all sealed now loses its tentative
		// exit and joins the region.
		if worklist.empty() {
			for i := 0; i < len(tryAgain); i++ {
				sb := tryAgain[i]
				ready := true
				for _, pb := range sb.Preds() {
					if !r.sealed[pb] {
						ready = false
						break
					}
				}
				if !ready {
					continue
				}
				r.eraseExit(sb.First())
				delete(inRetry, sb)
				tryAgain = append(tryAgain[:i], tryAgain[i+1:]...)
				worklist.push(sb.First())
				break
			}
		}
	}
	return nil
}

// Visit yields the region's instructions in forward control-flow
// order, bounded by the recorded exits.
func (r *Candidate) Visit(yield func(*ir.Instr)) {
	q := newUniqueQueue[*ir.Instr]()
	q.push(r.Entry)

	for !q.empty() {
		in := q.pop()
		bb := in.Block()
		k := indexIn(bb, in)
		stopped := false
		for k < len(bb.Instrs) {
			if _, isExit := r.exitIdx[bb.Instrs[k]]; isExit {
				stopped = true
				break
			}
			yield(bb.Instrs[k])
			k++
		}
		if !stopped {
			for _, sb := range bb.Succs() {
				if first := sb.First(); first != nil {
					q.push(first)
				}
			}
		}
	}
}

func indexIn(bb *ir.Block, in *ir.Instr) int {
	for k, cur := range bb.Instrs {
		if cur == in {
			return k
		}
	}
	return -1
}
