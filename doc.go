// Package nested provides typed nested containers with explicit validity
// tracking for Go.
//
// A container pairs one flat data buffer with a validity tree that mirrors
// the container's type: fixed and ragged dimensions, tuples, records, and
// scalar leaves. Optional scalars carry a bit-packed validity buffer where
// every element starts as NA; non-optional subtrees allocate nothing and
// answer validity queries without storage.
//
// # Quick Start
//
//	typ := typedesc.FixedDim(3, typedesc.Record(
//	    typedesc.Field{Name: "id", Type: typedesc.Scalar(typedesc.Int64)},
//	    typedesc.Field{Name: "score", Type: typedesc.Optional(typedesc.Scalar(typedesc.Float64))},
//	))
//
//	c, _ := nested.New(typ)
//	defer c.Close()
//
//	_ = c.SetFloat(0.87, 0, 1)
//	_ = c.SetValid(0, 1)        // values stay NA until marked valid
//	na, _ := c.IsNA(1, 1)       // true
//
// # Memory Budgets
//
// Containers can share a resource.Controller that caps total memory.
// Construction is all-or-nothing: when the budget cannot hold a container,
// New returns ErrOutOfMemory and releases every allocation it made.
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64 << 20})
//	c, err := nested.New(typ, nested.WithController(rc))
//
// # Snapshots
//
// Save and Load persist containers through any blobstore.Store (local
// disk, S3, MinIO), compressed and checksummed:
//
//	store, _ := blobstore.NewLocalStore("./data")
//	_ = nested.Save(ctx, store, "events-2026-08-28", c)
//	c2, _ := nested.Load(ctx, store, "events-2026-08-28")
//
// # Package Layout
//
//   - typedesc: immutable type trees
//   - validity: bitmap trees, the core of the library
//   - container: data buffer plus validity tree with path-based access
//   - snapshot: self-describing binary persistence
//   - blobstore: storage backends (memory, local, s3, minio)
//   - resource: memory budgets and IO pacing
package nested
