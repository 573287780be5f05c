// Package layout reproduces the engine allocator's size rounding and the C
// compiler's struct layout rules.
//
// AlignedSize is ZEND_MM_ALIGNED_SIZE: round a size up to the allocator's
// alignment modulus. The modulus must be a power of two; a modulus that is not
// is a configuration error caught by profile validation and tests, never by
// a fallible return.
//
// The Calculator derives size, alignment and field offsets of engine structs
// from a header description:
//   - Primitives: size equals alignment (uint8=1, uint32=4, double=8, etc.)
//   - Pointer-sized names (ptr, size_t, zend_long) follow the target width
//   - Structs: fields laid out sequentially with padding for alignment
//   - Unions: every member at offset 0, sized to the largest member
//   - Arrays: count elements of the same type
//
// Nested offsets are flattened into dotted paths ("This.u2", "gc.refcount").
package layout
