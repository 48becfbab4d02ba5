// Package grappa implements a compiler pass that extracts remote
// memory accesses from partitioned-global-address-space programs into
// standalone delegate units dispatched to the node that owns the data.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	grappa/              Root package with source-level entry points
//	├── ir/              SSA intermediate representation and verifier
//	├── irtext/          .gir text format parser
//	├── delegate/        Region analysis and extraction transform
//	├── interp/          Multi-node reference interpreter
//	├── errors/          Structured error types for all phases
//	└── cmd/girc/        Command-line driver and interactive viewer
//
// # Quick Start
//
// Transform a module from source text:
//
//	out, report, err := grappa.TransformSource(src, grappa.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out)
//	delegate.WriteReport(os.Stdout, report)
//
// # Address Spaces
//
// Pointers carry an address space: local (node-private), global
// (owned by one node, remotely addressable), or symmetric (replicated
// on every node at the same offset). The transform anchors on memory
// operations whose pointer operand is rooted, through any chain of
// address arithmetic and casts, at a global-space value. Each anchor
// seeds a region grown to the maximal single-entry extent that can
// execute on the owning node, which is then outlined and replaced
// with a resolve-and-invoke dispatch pair.
//
// # Determinism
//
// Transformation order is deterministic: functions are visited in
// module order from the task entry points, anchors in block order,
// and region IDs assigned sequentially per function. Two runs over
// the same input produce identical output.
package grappa
