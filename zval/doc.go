// Package zval implements the engine's tagged value.
//
// A Zval holds the raw 16 bytes of a zval (value word, u1.type_info and u2)
// together with the host that owns any heap payload the value points to.
// Values are copied in and out of the byte region with Load and Store using
// the profile's offsets, so the same Go code reads 64-bit and 32-bit builds.
//
// Typed reads return (T, bool): the bool is false when the discriminant does
// not match or the payload cannot be reached.
//
//	v := zval.FromLong(h, 42)
//	n, ok := v.Long()         // 42, true
//	s, ok := v.Str()          // "42", true
//	_, ok = v.Object()        // false
//
// Mutators replace the discriminant and payload. The previous payload is not
// released: ownership of heap payloads belongs to the host.
//
// TryCall invokes a callable value through the host. A present result only
// means the host performed the call; an exception raised by the callee is
// swallowed by the engine.
package zval
