// Package typedesc describes the shape of nested, typed containers.
//
// A Type is a tree: dimensions (fixed or ragged) over an element type,
// heterogeneous products (tuples and records) over ordered field types, and
// scalar leaves carrying a storage DType. Scalars may be marked optional,
// meaning individual element instances can be NA (not available).
//
// Types are immutable once constructed. Every node knows whether it is
// optional itself and whether anything in its subtree is optional; the
// latter is what lets downstream consumers skip validity storage entirely
// for subtrees that can never be NA.
//
// # Concreteness
//
// A concrete type has fully resolved shapes and offsets. Abstract
// placeholders (Any) appear only during type resolution and are rejected by
// consumers that allocate storage.
package typedesc
