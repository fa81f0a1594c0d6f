package container

import (
	"fmt"

	"github.com/hupe1980/nested/internal/mem"
	"github.com/hupe1980/nested/resource"
	"github.com/hupe1980/nested/typedesc"
	"github.com/hupe1980/nested/validity"
)

// Container is a typed nested container: one zeroed data buffer and one
// validity tree, both sized from the type at construction.
type Container struct {
	typ    *typedesc.Type
	data   []byte
	tree   *validity.Tree
	rc     *resource.Controller
	closed bool
}

// New builds a container of type t. Data and validity storage are charged
// against rc; a nil rc means unlimited.
//
// t must be concrete (panics otherwise). Returns validity.ErrOutOfMemory
// when the budget cannot hold the container, or ErrRaggedLayout when the
// type nests ragged dimensions in an unsupported position. Construction is
// all-or-nothing: on error nothing stays reserved.
func New(t *typedesc.Type, rc *resource.Controller) (*Container, error) {
	if !t.Concrete() {
		panic(fmt.Sprintf("container: non-concrete type %s", t))
	}

	nbytes, err := DataBytes(t)
	if err != nil {
		return nil, err
	}

	if !rc.TryAcquireMemory(nbytes) {
		return nil, validity.ErrOutOfMemory
	}

	tree, err := validity.BuildTree(t, rc)
	if err != nil {
		rc.ReleaseMemory(nbytes)
		return nil, err
	}

	return &Container{
		typ:  t,
		data: mem.AllocAligned(int(nbytes)),
		tree: tree,
		rc:   rc,
	}, nil
}

// DataBytes returns the size of the data buffer for one container of type
// t, or ErrRaggedLayout for unsupported ragged nestings.
func DataBytes(t *typedesc.Type) (int64, error) {
	if s := t.ItemSize(); s >= 0 {
		return s, nil
	}

	// A ragged chain from the root stores its elements flattened; the
	// innermost cumulative offsets already give the total count.
	if t.Kind() == typedesc.KindVarDim {
		elem := t.Elem()
		if es := elem.ItemSize(); es >= 0 {
			offs := t.Offsets()
			return offs[len(offs)-1] * es, nil
		}
		if elem.Kind() == typedesc.KindVarDim {
			return DataBytes(elem)
		}
	}

	return 0, ErrRaggedLayout
}

// Type returns the container's type.
func (c *Container) Type() *typedesc.Type { return c.typ }

// Bytes returns the raw data buffer. The slice is owned by the container
// and valid until Close.
func (c *Container) Bytes() []byte { return c.data }

// Validity returns the container's validity tree.
func (c *Container) Validity() *validity.Tree { return c.tree }

// Close releases the data buffer and the validity tree, returning their
// reservations to the budget. Idempotent.
func (c *Container) Close() {
	if c == nil || c.closed {
		return
	}
	c.closed = true

	c.tree.Free()
	c.rc.ReleaseMemory(int64(len(c.data)))
	c.data = nil
}
