// Package abi is the single place that knows the engine's memory layout.
//
// A Profile is loaded from a header description: a TOML file listing the
// engine structs a given build uses (zval, zend_execute_data, zend_string,
// ...), the target pointer width and the allocator's published alignment
// constants. Layouts are computed once with the layout package and exposed
// as flat offset tables, so an ABI version bump means a new profile file and
// nothing else.
//
// # Profile Files
//
//	name = "php-8.0-x86_64"
//	pointer_size = 8
//
//	[allocator]
//	alignment = 8        # ZEND_MM_ALIGNMENT
//	alignment_mask = -8  # ZEND_MM_ALIGNMENT_MASK
//
//	[conversion]
//	precision = 14       # the precision ini setting used for double to string
//
//	[[structs]]
//	name = "zval"
//	fields = [
//	  { name = "value", union = [ { name = "lval", type = "zend_long" }, ... ] },
//	  { name = "type_info", type = "uint32" },
//	  { name = "u2", type = "uint32" },
//	]
//
// Built-in profiles are embedded; Builtins lists their names.
//
// Discriminant and flag constants (IS_LONG, IS_STR_INTERNED, ...) have been
// stable since PHP 7.3 and live here as plain constants.
package abi
