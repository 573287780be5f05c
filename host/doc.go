// Package host declares the engine primitives the core calls into.
//
// The core never implements these; it reaches them through the narrow
// interfaces below. All pointers are addresses in the host's byte region and
// 0 is the null pointer.
//
//	PropertyReader      zend_read_property
//	CallabilityChecker  zend_is_callable
//	Invoker             _call_user_function_impl
//	StringManager       zend_string_init / zend_string_init_interned / zend_string_release
//
// A Host bundles them with the region, its allocator and the ABI profile
// describing the build. The engine package provides an in-process Host.
package host
