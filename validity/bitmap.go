package validity

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/hupe1980/nested/internal/mem"
	"github.com/hupe1980/nested/typedesc"
)

// ErrOutOfMemory is returned when the memory budget cannot satisfy an
// allocation. It is the only error this package produces.
var ErrOutOfMemory = errors.New("validity: out of memory")

// MemoryReserver charges allocations against a budget. Implementations must
// never block in TryAcquireMemory. *resource.Controller satisfies this.
type MemoryReserver interface {
	TryAcquireMemory(bytes int64) bool
	ReleaseMemory(bytes int64)
}

// nodeSize is the reservation charged per bitmap node in a child array.
var nodeSize = int64(unsafe.Sizeof(Bitmap{})) //nolint:gosec // sizing only

// ByteCount returns the number of bytes needed to bit-pack nelem elements,
// ceil(nelem/8). nelem must be non-negative.
func ByteCount(nelem int64) int64 {
	return (nelem + 7) / 8
}

// Bitmap is one node of a validity tree. Exactly one of three states holds:
//
//   - Empty: no descendant is optional; nothing allocated.
//   - Leaf: an optional scalar; data holds one bit per element instance,
//     all-zero after construction (every element defaults to NA).
//   - Branch: a tuple or record; next holds nitems * fieldCount children.
//
// A node is never simultaneously Leaf and Branch. The zero value is Empty.
type Bitmap struct {
	data []byte
	next []Bitmap
}

// IsEmpty reports whether the node holds no storage.
func (b *Bitmap) IsEmpty() bool { return b.data == nil && b.next == nil }

// IsLeaf reports whether the node holds a bit-packed buffer.
func (b *Bitmap) IsLeaf() bool { return b.data != nil }

// IsBranch reports whether the node holds a child array.
func (b *Bitmap) IsBranch() bool { return b.next != nil }

// Data returns the leaf buffer, nil for non-leaf nodes.
func (b *Bitmap) Data() []byte { return b.data }

// NumChildren returns the size of the child array, 0 for non-branch nodes.
func (b *Bitmap) NumChildren() int { return len(b.next) }

// Child returns a pointer to the i-th child of a branch node.
func (b *Bitmap) Child(i int64) *Bitmap { return &b.next[i] }

// Tree is a fully built validity tree. It retains the reserver it was
// charged against so Free can return the budget.
type Tree struct {
	root Bitmap
	res  MemoryReserver
}

// BuildTree builds the validity tree for one container of type t.
//
// t must be concrete; a non-concrete type is a caller bug and panics. The
// only runtime failure is ErrOutOfMemory, in which case no allocation made
// by this call survives.
func BuildTree(t *typedesc.Type, res MemoryReserver) (*Tree, error) {
	if !t.Concrete() {
		panic(fmt.Sprintf("validity: build on non-concrete type %s", t))
	}

	tr := &Tree{res: res}
	if err := build(&tr.root, t, 1, res); err != nil {
		return nil, err
	}
	return tr, nil
}

// Root returns the root node of the tree.
func (tr *Tree) Root() *Bitmap { return &tr.root }

// Free releases the whole tree and returns its reservation to the budget.
// Idempotent; safe on nil.
func (tr *Tree) Free() {
	if tr == nil {
		return
	}
	destroy(&tr.root, tr.res)
}

// build initializes b, a freshly Empty node, for nitems repetitions of t.
func build(b *Bitmap, t *typedesc.Type, nitems int64, res MemoryReserver) error {
	if t.Kind() == typedesc.KindScalar && t.Optional() {
		data, err := newBits(nitems, res)
		if err != nil {
			return err
		}
		b.data = data
		return nil
	}

	if !t.SubtreeOptional() {
		return nil
	}

	switch t.Kind() {
	case typedesc.KindFixedDim:
		// Repetitions share one bitmap addressed by a flattened index.
		return build(b, t.Elem(), nitems*t.Shape(), res)

	case typedesc.KindVarDim:
		offsets := t.Offsets()
		n := offsets[len(offsets)-1]
		return build(b, t.Elem(), n, res)

	case typedesc.KindTuple, typedesc.KindRecord:
		fields := t.Fields()
		k := int64(len(fields))

		next, err := newNodeArray(nitems*k, res)
		if err != nil {
			return err
		}
		b.next = next

		for i := int64(0); i < nitems; i++ {
			for j := int64(0); j < k; j++ {
				if err := build(&b.next[i*k+j], fields[j].Type, 1, res); err != nil {
					destroy(b, res)
					return err
				}
			}
		}
		return nil

	default:
		return nil
	}
}

// destroy releases b and all descendants, returning reservations to the
// budget, and resets b to Empty. Idempotent; never fails. It is both the
// teardown path and the builder's rollback primitive.
func destroy(b *Bitmap, res MemoryReserver) {
	if b.data != nil {
		release(res, int64(len(b.data)))
		b.data = nil
	}

	if b.next != nil {
		for i := range b.next {
			destroy(&b.next[i], res)
		}
		release(res, int64(len(b.next))*nodeSize)
		b.next = nil
	}
}

// newBits allocates a zeroed bit-packed buffer covering nelem elements.
// nelem == 0 yields nil (nothing to cover, nothing reserved).
func newBits(nelem int64, res MemoryReserver) ([]byte, error) {
	n := ByteCount(nelem)
	if n == 0 {
		return nil, nil
	}
	if !reserve(res, n) {
		return nil, ErrOutOfMemory
	}
	return mem.AllocAligned(int(n)), nil
}

// newNodeArray allocates a zeroed contiguous array of n Empty nodes.
func newNodeArray(n int64, res MemoryReserver) ([]Bitmap, error) {
	if n == 0 {
		return nil, nil
	}
	if !reserve(res, n*nodeSize) {
		return nil, ErrOutOfMemory
	}
	return make([]Bitmap, n), nil
}

func reserve(res MemoryReserver, n int64) bool {
	if res == nil {
		return true
	}
	return res.TryAcquireMemory(n)
}

func release(res MemoryReserver, n int64) {
	if res != nil {
		res.ReleaseMemory(n)
	}
}
