// Package zendabi models the Zend engine's value and call-frame memory layout in Go.
//
// The engine's zval and zend_execute_data structures are fixed by an external,
// versioned ABI. This module never chooses a layout: it reads one from an ABI
// profile (a header description) and reproduces the engine's own arithmetic on
// top of it. Foreign memory is an opaque byte region addressed by uint32
// offsets, so every pointer inside a value is an index into that region.
//
// # Architecture Overview
//
//	zendabi/             Root package with Memory, Allocator and Grower interfaces
//	├── layout/          ZEND_MM_ALIGNED_SIZE and C struct layout calculation
//	├── abi/             ABI profiles (TOML header descriptions) and type constants
//	├── host/            Interfaces of the engine primitives the core calls into
//	├── zval/            The tagged value, typed accessors and the call invoker
//	├── frame/           Call-frame slot resolution and argument lookup
//	├── memory/          Byte-slice and wazero backed regions
//	├── engine/          In-process emulation of the engine primitives
//	├── snapshot/        Call-frame capture to CBOR
//	├── errors/          Structured error types
//	└── cmd/zvalctl/     Inspection CLI
//
// # Quick Start
//
//	profile, _ := abi.Builtin("php-8.0-x86_64")
//	eng, _ := engine.New(profile)
//
//	eng.RegisterFunction("greet", func(ex *frame.ExecuteData, ret *zval.Zval) error {
//	    name, _ := frame.Arg[string](ex, 0)
//	    return ret.SetString("Hello, " + name)
//	})
//
//	callee, _ := zval.FromString(eng, "greet")
//	arg, _ := zval.FromString(eng, "World")
//	result, ok := callee.TryCall([]zval.Zval{arg})
//
// A present result does not mean the callee succeeded: an exception raised
// inside the engine is swallowed by the call primitive.
//
// # Thread Safety
//
// Profiles and slot resolvers may be shared. Values, frames and engines belong
// to the single thread running the current request.
package zendabi
