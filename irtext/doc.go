// Package irtext parses the textual interchange form of ir modules.
//
// A .gir file starts with a module header carrying a semver format
// version, followed by globals, declarations and function
// definitions:
//
//	module "dht" format "1.0.0"
//
//	global @seed i64 = 42
//
//	declare @log_cell(i64) -> void [unbound]
//
//	func @bump(%cell: ptr<i64, global>, %delta: i64) -> i64 [async] {
//	entry:
//	  %old = load %cell
//	  %new = add i64 %old, %delta
//	  store %new, %cell
//	  ret %new
//	}
//
// The format round-trips: ir.Fprint emits text this package parses
// back into a structurally identical module. Function signatures are
// resolved in a first pass so calls may reference functions defined
// later in the file, and phi incoming values may reference values
// defined further down their function.
package irtext
