// Package validity tracks, per element of a typed nested container, whether
// the element is present or NA (not available).
//
// Presence is one bit per element instance. Bits live in a tree of bitmap
// nodes that mirrors the container's type tree, with two deliberate
// asymmetries:
//
//   - Subtrees with no optional leaf anywhere allocate nothing. Queries
//     against them short-circuit to "always valid".
//   - Repetition dimensions (fixed or ragged) do not materialize their own
//     nodes. They recurse into their element type with an inflated item
//     count, so all repetitions share one bitmap addressed by a flattened
//     index.
//
// Construction is all-or-nothing: if any allocation deep in the recursion
// fails, everything allocated by that build is released before the error is
// returned. Allocations are charged against a MemoryReserver (typically a
// resource.Controller), which is also what makes the rollback observable.
//
// # Concurrency
//
// The package does no locking. After construction, IsValid/IsNA reads may
// run concurrently. SetValid is an unsynchronized read-modify-write of a
// shared byte: callers must serialize writers, partition element ranges so
// each byte has at most one writer, or synchronize externally. Free may
// only run after all readers and writers have finished.
package validity
