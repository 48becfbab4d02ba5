package engine

import "github.com/maqayum/grappa/ir"

// valueSet is an ordered, duplicate-free value collection. Input and
// output sets use it: iteration order is first-insertion order, and
// that order fixes the field order of the marshaling aggregates, so
// the same set drives both sides of the buffer protocol.
type valueSet struct {
	items []ir.Value
	index map[ir.Value]int
}

func newValueSet() *valueSet {
	return &valueSet{index: make(map[ir.Value]int)}
}

func (s *valueSet) add(v ir.Value) {
	if _, ok := s.index[v]; ok {
		return
	}
	s.index[v] = len(s.items)
	s.items = append(s.items, v)
}

func (s *valueSet) contains(v ir.Value) bool {
	_, ok := s.index[v]
	return ok
}

func (s *valueSet) len() int { return len(s.items) }
