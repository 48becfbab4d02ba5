// Package delegate turns locality-anchored code regions into remote
// delegate calls.
//
// Transform analyzes every reachable task function of a module, traces
// each memory access back to the pointer it derives from, grows a
// candidate region around every access rooted in a global-space
// pointer, and outlines the grown regions into internal delegate units
// invoked through the runtime's locate and invoke primitives. The
// returned Report describes what was found and what was rewritten;
// WriteReport and WriteDot render it for humans.
package delegate
