// Package interp executes modules over a simulated multi-node memory.
//
// It exists as a deterministic oracle for the extraction pass: a
// scenario runs before and after the transform and the observable
// results and per-node memory are compared. Each node owns a flat byte
// heap; global-space pointers carry their owning node alongside the
// offset. The locate and invoke runtime primitives are builtins, the
// latter re-entering the interpreter on the target node with the
// marshaled buffers copied across.
package interp
