// Package engine emulates the engine primitives the value and frame code
// call into.
//
// An Engine owns a byte region, a heap over it and the request's registries:
// interned strings, functions, classes, objects, resources, arrays and
// references. Every structure is written with the profile's layout, so the
// frames and values it produces are read back by package zval and package
// frame exactly as they would be read from a real engine.
//
//	eng, _ := engine.New(abi.MustBuiltin("php-8.0-x86_64"))
//	eng.RegisterFunction("double", func(ex *frame.ExecuteData, ret *zval.Zval) error {
//	    n, _ := frame.Arg[int64](ex, 0)
//	    ret.SetLong(n * 2)
//	    return nil
//	})
//
// A handler error becomes the pending exception. The call itself still
// reports success and leaves the return slot Undef, as the engine does.
//
// Wasm exports can be registered as functions; their numeric parameters are
// read from the frame and results converted back to zvals.
package engine
