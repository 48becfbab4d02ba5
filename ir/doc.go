// Package ir defines the intermediate representation consumed and
// rewritten by the delegate extraction pass.
//
// A Module holds globals and functions. A Function is a list of basic
// Blocks; a Block is a straight-line run of Instrs ending in a single
// terminator. Instructions are a closed tagged set discriminated by Op
// and are themselves values, as are constants, globals, arguments,
// functions and blocks (branch targets).
//
// Operand edges are kept symmetric with per-value use lists: mutating
// an operand through SetOperand, or a value through
// ReplaceAllUsesWith, updates both sides. Passes rely on this to
// rewrite control flow and data flow without rescanning the module.
//
// # Address spaces
//
// Pointer types carry an address space. Plain (local) pointers address
// node-private memory. Global pointers name a cell owned by a single
// node in the cluster and are wide (node id plus offset). Symmetric
// pointers name a replicated allocation with one copy per node; a
// symmetric address is meaningful on every node.
//
// # Mutation helpers
//
// Block.SplitBefore, CloneBlocksInto, Remap and
// Function.RemoveBlocks are the building blocks for outlining: they
// move instruction ranges across block and function boundaries while
// keeping use lists and successor phis consistent.
package ir
