// Package memory provides byte regions the engine's heap can live in.
//
// Buffer is a plain growable byte slice. Wrapper adapts a wazero linear
// memory, so the same zvals and frames can sit inside a running wasm module.
// Both are little-endian and treat every access outside the region as an
// error.
package memory
