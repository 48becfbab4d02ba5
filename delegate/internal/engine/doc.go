// Package engine implements the delegate extraction pipeline.
//
// The pipeline runs in three strictly ordered stages per function.
// Provenance analysis walks every memory access's address chain
// backward to a base value and classifies it; accesses rooted at a
// global-remote or stack-local base become anchors. Region growth
// starts a candidate region at each unclaimed global anchor and
// expands it block-forward as far as every instruction's memory
// effects stay within the region's single target location, deferring
// merge blocks until all their predecessors are absorbed. Outlining
// then cuts each finalized region out into a standalone unit with
// marshaled inputs and outputs and replaces it with a remote dispatch
// and an exit-code switch.
//
// Analysis only tags and records; all control-flow mutation happens
// in the outlining stage against the frozen region, so growth never
// races its own traversal.
package engine
