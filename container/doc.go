// Package container implements typed nested containers: a contiguous data
// buffer plus a validity tree, both laid out from a typedesc.Type at
// construction time.
//
// Shapes are fixed once a container is built; there is no resize. Element
// access resolves a path of indices and field ordinals to a flattened
// position, which carries the byte offset into the data buffer and the
// bitmap node responsible for the element's validity bit.
//
// # Layout constraints
//
// Fixed dimensions, tuples, records and scalars nest freely in row-major
// layout. Ragged (var) dimensions are supported as a chain from the root
// (var * var * ... * fixed-size element); ragged dimensions nested under
// fixed dimensions or products need per-branch offset buffers and are not
// supported.
//
// # Concurrency
//
// Containers do no locking. Concurrent reads are safe once construction
// finishes; writes to element data or validity bits must be serialized or
// partitioned by the caller. Close only after all accessors have returned.
package container
