// Package snapshot captures call frames to CBOR and rebuilds them.
//
// A Snapshot records the profile, the header slot count, the executing
// function's name, the raw header bytes and one image per argument. String
// arguments carry their contents. Payload pointers do not survive a restore:
// array, object, resource and reference arguments come back as Null.
//
// Encoding uses canonical CBOR so equal snapshots produce equal bytes.
package snapshot
