package container

import (
	"encoding/binary"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/nested/typedesc"
	"github.com/hupe1980/nested/validity"
)

// cursor is a resolved element: its type, flattened bitmap index, byte
// offset into the data buffer, and the responsible bitmap node.
type cursor struct {
	typ  *typedesc.Type
	node *validity.Bitmap
	idx  int64
	off  int64
}

// resolve walks the type tree along path. Each step is a repetition index
// for a dimension or a field ordinal for a tuple/record. The walk keeps
// the flattened bitmap index, the responsible bitmap node and the byte
// offset in lockstep.
func (c *Container) resolve(path ...int64) (cursor, error) {
	if c.closed {
		return cursor{}, ErrClosed
	}

	cur := cursor{typ: c.typ, node: c.tree.Root()}

	for _, s := range path {
		switch cur.typ.Kind() {
		case typedesc.KindFixedDim:
			shape := cur.typ.Shape()
			if s < 0 || s >= shape {
				return cursor{}, &ErrIndexOutOfRange{Index: s, Bound: shape}
			}
			cur.idx = cur.idx*shape + s
			cur.typ = cur.typ.Elem()
			cur.off += s * cur.typ.ItemSize()

		case typedesc.KindVarDim:
			offs := cur.typ.Offsets()
			if cur.idx+1 >= int64(len(offs)) {
				return cursor{}, &ErrIndexOutOfRange{Index: cur.idx, Bound: int64(len(offs)) - 1}
			}
			start := offs[cur.idx]
			n := offs[cur.idx+1] - start
			if s < 0 || s >= n {
				return cursor{}, &ErrIndexOutOfRange{Index: s, Bound: n}
			}
			cur.idx = start + s
			cur.typ = cur.typ.Elem()
			// A ragged chain bottoms out in a fixed-size element; the
			// flattened index addresses the data buffer absolutely there.
			if es := cur.typ.ItemSize(); es >= 0 {
				cur.off = cur.idx * es
			}

		case typedesc.KindTuple, typedesc.KindRecord:
			fields := cur.typ.Fields()
			k := int64(len(fields))
			if s < 0 || s >= k {
				return cursor{}, &ErrIndexOutOfRange{Index: s, Bound: k}
			}
			for _, f := range fields[:s] {
				cur.off += f.Type.ItemSize()
			}
			// Non-optional subtrees have no branch storage; the node stays
			// Empty and the final scalar cannot be optional.
			if cur.node.IsBranch() {
				cur.node = cur.node.Child(cur.idx*k + s)
			}
			cur.idx = 0
			cur.typ = fields[s].Type

		default:
			return cursor{}, ErrPathTooLong
		}
	}

	if cur.typ.Kind() != typedesc.KindScalar {
		return cursor{}, ErrPathTooShort
	}
	return cur, nil
}

// Resolve resolves a path to a scalar element position for validity
// queries. Each path step is a repetition index (dimensions) or a field
// ordinal (tuples and records).
func (c *Container) Resolve(path ...int64) (validity.Position, error) {
	cur, err := c.resolve(path...)
	if err != nil {
		return validity.Position{}, err
	}
	return validity.Position{Type: cur.typ, Index: cur.idx, Bitmap: cur.node}, nil
}

// SetValid marks the element at path as present. The element's type must
// be optional; violating that is a caller bug and panics.
func (c *Container) SetValid(path ...int64) error {
	pos, err := c.Resolve(path...)
	if err != nil {
		return err
	}
	pos.SetValid()
	return nil
}

// IsValid reports whether the element at path is present. Elements of
// non-optional type are always valid.
func (c *Container) IsValid(path ...int64) (bool, error) {
	pos, err := c.Resolve(path...)
	if err != nil {
		return false, err
	}
	return pos.IsValid(), nil
}

// IsNA reports whether the element at path is missing; the exact
// complement of IsValid for optional elements, always false otherwise.
func (c *Container) IsNA(path ...int64) (bool, error) {
	pos, err := c.Resolve(path...)
	if err != nil {
		return false, err
	}
	return pos.IsNA(), nil
}

// Int returns the signed integer element at path.
func (c *Container) Int(path ...int64) (int64, error) {
	cur, err := c.resolve(path...)
	if err != nil {
		return 0, err
	}
	switch cur.typ.DType() {
	case typedesc.Int8:
		return int64(int8(c.data[cur.off])), nil
	case typedesc.Int16:
		return int64(int16(binary.LittleEndian.Uint16(c.data[cur.off:]))), nil
	case typedesc.Int32:
		return int64(int32(binary.LittleEndian.Uint32(c.data[cur.off:]))), nil
	case typedesc.Int64:
		return int64(binary.LittleEndian.Uint64(c.data[cur.off:])), nil
	default:
		return 0, &ErrDTypeMismatch{Want: "int", Got: cur.typ.DType()}
	}
}

// SetInt stores a signed integer element at path. Storing a value does not
// mark the element valid; optional elements stay NA until SetValid.
func (c *Container) SetInt(v int64, path ...int64) error {
	cur, err := c.resolve(path...)
	if err != nil {
		return err
	}
	switch cur.typ.DType() {
	case typedesc.Int8:
		c.data[cur.off] = byte(v)
	case typedesc.Int16:
		binary.LittleEndian.PutUint16(c.data[cur.off:], uint16(v))
	case typedesc.Int32:
		binary.LittleEndian.PutUint32(c.data[cur.off:], uint32(v))
	case typedesc.Int64:
		binary.LittleEndian.PutUint64(c.data[cur.off:], uint64(v))
	default:
		return &ErrDTypeMismatch{Want: "int", Got: cur.typ.DType()}
	}
	return nil
}

// Uint returns the unsigned integer element at path.
func (c *Container) Uint(path ...int64) (uint64, error) {
	cur, err := c.resolve(path...)
	if err != nil {
		return 0, err
	}
	switch cur.typ.DType() {
	case typedesc.Uint8:
		return uint64(c.data[cur.off]), nil
	case typedesc.Uint16:
		return uint64(binary.LittleEndian.Uint16(c.data[cur.off:])), nil
	case typedesc.Uint32:
		return uint64(binary.LittleEndian.Uint32(c.data[cur.off:])), nil
	case typedesc.Uint64:
		return binary.LittleEndian.Uint64(c.data[cur.off:]), nil
	default:
		return 0, &ErrDTypeMismatch{Want: "uint", Got: cur.typ.DType()}
	}
}

// SetUint stores an unsigned integer element at path.
func (c *Container) SetUint(v uint64, path ...int64) error {
	cur, err := c.resolve(path...)
	if err != nil {
		return err
	}
	switch cur.typ.DType() {
	case typedesc.Uint8:
		c.data[cur.off] = byte(v)
	case typedesc.Uint16:
		binary.LittleEndian.PutUint16(c.data[cur.off:], uint16(v))
	case typedesc.Uint32:
		binary.LittleEndian.PutUint32(c.data[cur.off:], uint32(v))
	case typedesc.Uint64:
		binary.LittleEndian.PutUint64(c.data[cur.off:], v)
	default:
		return &ErrDTypeMismatch{Want: "uint", Got: cur.typ.DType()}
	}
	return nil
}

// Float returns the floating-point element at path.
func (c *Container) Float(path ...int64) (float64, error) {
	cur, err := c.resolve(path...)
	if err != nil {
		return 0, err
	}
	switch cur.typ.DType() {
	case typedesc.Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(c.data[cur.off:]))), nil
	case typedesc.Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(c.data[cur.off:])), nil
	default:
		return 0, &ErrDTypeMismatch{Want: "float", Got: cur.typ.DType()}
	}
}

// SetFloat stores a floating-point element at path.
func (c *Container) SetFloat(v float64, path ...int64) error {
	cur, err := c.resolve(path...)
	if err != nil {
		return err
	}
	switch cur.typ.DType() {
	case typedesc.Float32:
		binary.LittleEndian.PutUint32(c.data[cur.off:], math.Float32bits(float32(v)))
	case typedesc.Float64:
		binary.LittleEndian.PutUint64(c.data[cur.off:], math.Float64bits(v))
	default:
		return &ErrDTypeMismatch{Want: "float", Got: cur.typ.DType()}
	}
	return nil
}

// Bool returns the boolean element at path.
func (c *Container) Bool(path ...int64) (bool, error) {
	cur, err := c.resolve(path...)
	if err != nil {
		return false, err
	}
	if cur.typ.DType() != typedesc.Bool {
		return false, &ErrDTypeMismatch{Want: "bool", Got: cur.typ.DType()}
	}
	return c.data[cur.off] != 0, nil
}

// SetBool stores a boolean element at path.
func (c *Container) SetBool(v bool, path ...int64) error {
	cur, err := c.resolve(path...)
	if err != nil {
		return err
	}
	if cur.typ.DType() != typedesc.Bool {
		return &ErrDTypeMismatch{Want: "bool", Got: cur.typ.DType()}
	}
	if v {
		c.data[cur.off] = 1
	} else {
		c.data[cur.off] = 0
	}
	return nil
}

// flatArray returns the flattened element count and scalar type when the
// container's type is a dimension chain over a scalar.
func (c *Container) flatArray() (int64, *typedesc.Type, error) {
	n := int64(1)
	t := c.typ
	for {
		switch t.Kind() {
		case typedesc.KindFixedDim:
			n *= t.Shape()
			t = t.Elem()
		case typedesc.KindVarDim:
			offs := t.Offsets()
			n = offs[len(offs)-1]
			t = t.Elem()
		case typedesc.KindScalar:
			return n, t, nil
		default:
			return 0, nil, ErrPathTooShort
		}
	}
}

// ValidMask returns the set of valid flattened indices as a roaring
// bitmap. The container's type must be a dimension chain over a scalar;
// for a non-optional scalar every index is valid. Roaring indices are
// 32-bit, so containers with more than 1<<32 flattened elements panic;
// use NullCount for counting at that scale.
func (c *Container) ValidMask() (*roaring.Bitmap, error) {
	if c.closed {
		return nil, ErrClosed
	}
	n, scalar, err := c.flatArray()
	if err != nil {
		return nil, err
	}
	if !scalar.Optional() {
		rb := roaring.New()
		rb.AddRange(0, uint64(n))
		return rb, nil
	}
	return c.tree.Root().ValidSet(n), nil
}

// NullCount returns the number of missing elements. The container's type
// must be a dimension chain over a scalar; non-optional scalars yield 0.
func (c *Container) NullCount() (int64, error) {
	if c.closed {
		return 0, ErrClosed
	}
	n, scalar, err := c.flatArray()
	if err != nil {
		return 0, err
	}
	if !scalar.Optional() {
		return 0, nil
	}
	return c.tree.Root().CountNA(n), nil
}
