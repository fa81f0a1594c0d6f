package typedesc

import (
	"fmt"
	"strings"
)

// Kind identifies the category of a type node.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFixedDim
	KindVarDim
	KindTuple
	KindRecord
	KindScalar
	KindAny // abstract placeholder; never concrete
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindFixedDim:
		return "FixedDim"
	case KindVarDim:
		return "VarDim"
	case KindTuple:
		return "Tuple"
	case KindRecord:
		return "Record"
	case KindScalar:
		return "Scalar"
	case KindAny:
		return "Any"
	default:
		return "Invalid"
	}
}

// DType is the storage type of a scalar leaf.
type DType uint8

const (
	Bool DType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

// Size returns the storage width of the dtype in bytes.
func (d DType) Size() int64 {
	switch d {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		panic(fmt.Sprintf("typedesc: unknown dtype %d", d))
	}
}

// String returns the datashape name of the dtype.
func (d DType) String() string {
	switch d {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// Field is a named member of a Record, or an unnamed member of a Tuple.
type Field struct {
	Name string
	Type *Type
}

// Type is one node of an immutable type tree.
//
// Constructors validate their arguments and panic on structurally invalid
// input (negative shape, non-monotonic offsets, optional non-scalar).
// Malformed types are construction-time bugs, not runtime conditions.
type Type struct {
	kind       Kind
	optional   bool
	subtreeOpt bool
	concrete   bool

	shape   int64   // FixedDim
	elem    *Type   // FixedDim, VarDim
	offsets []int64 // VarDim: cumulative, offsets[0] == 0, last = flattened total
	fields  []Field // Tuple, Record
	dtype   DType   // Scalar
}

// Scalar returns a non-optional scalar leaf of the given dtype.
func Scalar(d DType) *Type {
	return &Type{kind: KindScalar, dtype: d, concrete: true}
}

// Optional returns an optional copy of a scalar type. Element instances of
// an optional scalar default to NA until explicitly marked valid.
//
// Only scalars can be optional: products are made optional per field, and
// dimensions inherit optionality from their element type.
func Optional(t *Type) *Type {
	if t.kind != KindScalar {
		panic(fmt.Sprintf("typedesc: Optional requires a scalar, got %s", t.kind))
	}
	cp := *t
	cp.optional = true
	cp.subtreeOpt = true
	return &cp
}

// FixedDim returns a fixed-length dimension of shape elements of elem.
func FixedDim(shape int64, elem *Type) *Type {
	if shape < 0 {
		panic(fmt.Sprintf("typedesc: negative shape %d", shape))
	}
	return &Type{
		kind:       KindFixedDim,
		shape:      shape,
		elem:       elem,
		subtreeOpt: elem.subtreeOpt,
		concrete:   elem.concrete,
	}
}

// VarDim returns a ragged dimension over elem. The cumulative offsets give
// the start of each slice; offsets[0] must be 0, entries must be
// non-decreasing, and the final entry is the total flattened element count.
func VarDim(elem *Type, offsets []int64) *Type {
	if len(offsets) == 0 || offsets[0] != 0 {
		panic("typedesc: var dim offsets must start with 0")
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			panic(fmt.Sprintf("typedesc: var dim offsets decrease at %d", i))
		}
	}
	cp := make([]int64, len(offsets))
	copy(cp, offsets)
	return &Type{
		kind:       KindVarDim,
		elem:       elem,
		offsets:    cp,
		subtreeOpt: elem.subtreeOpt,
		concrete:   elem.concrete,
	}
}

// Tuple returns an ordered heterogeneous product of the given types.
func Tuple(types ...*Type) *Type {
	fields := make([]Field, len(types))
	for i, t := range types {
		fields[i] = Field{Type: t}
	}
	return product(KindTuple, fields)
}

// Record returns an ordered product of named fields.
func Record(fields ...Field) *Type {
	for _, f := range fields {
		if f.Name == "" {
			panic("typedesc: record field without a name")
		}
	}
	cp := make([]Field, len(fields))
	copy(cp, fields)
	return product(KindRecord, cp)
}

func product(kind Kind, fields []Field) *Type {
	t := &Type{kind: kind, fields: fields, concrete: true}
	for _, f := range fields {
		t.subtreeOpt = t.subtreeOpt || f.Type.subtreeOpt
		t.concrete = t.concrete && f.Type.concrete
	}
	return t
}

// Any returns an abstract placeholder. It is never concrete and carries no
// storage; it exists so resolution pipelines have something to substitute.
func Any() *Type {
	return &Type{kind: KindAny}
}

// Kind returns the category of this node.
func (t *Type) Kind() Kind { return t.kind }

// Optional reports whether element instances of this node may be NA.
func (t *Type) Optional() bool { return t.optional }

// SubtreeOptional reports whether this node or anything beneath it is
// optional.
func (t *Type) SubtreeOptional() bool { return t.subtreeOpt }

// Concrete reports whether all shapes and offsets in the subtree are
// resolved. Storage may only be allocated for concrete types.
func (t *Type) Concrete() bool { return t.concrete }

// Shape returns the repetition count of a FixedDim.
func (t *Type) Shape() int64 { return t.shape }

// Elem returns the element type of a FixedDim or VarDim, nil otherwise.
func (t *Type) Elem() *Type { return t.elem }

// Offsets returns the cumulative offsets of a VarDim. The returned slice
// must not be mutated.
func (t *Type) Offsets() []int64 { return t.offsets }

// NumSlices returns the number of slices of a VarDim.
func (t *Type) NumSlices() int64 { return int64(len(t.offsets)) - 1 }

// Fields returns the fields of a Tuple or Record. The returned slice must
// not be mutated.
func (t *Type) Fields() []Field { return t.fields }

// NumFields returns the field count of a Tuple or Record.
func (t *Type) NumFields() int { return len(t.fields) }

// DType returns the storage type of a Scalar.
func (t *Type) DType() DType { return t.dtype }

// ItemSize returns the fixed byte width of one element instance of this
// type, or -1 if the type has no fixed width (ragged dimensions, abstract
// placeholders).
func (t *Type) ItemSize() int64 {
	switch t.kind {
	case KindScalar:
		return t.dtype.Size()
	case KindFixedDim:
		es := t.elem.ItemSize()
		if es < 0 {
			return -1
		}
		return t.shape * es
	case KindTuple, KindRecord:
		var sum int64
		for _, f := range t.fields {
			fs := f.Type.ItemSize()
			if fs < 0 {
				return -1
			}
			sum += fs
		}
		return sum
	default:
		return -1
	}
}

// String returns a datashape-like rendering of the type, e.g.
// "3 * ?int64", "var * bool", "(int64, ?float64)" or "{x: int32}".
func (t *Type) String() string {
	var sb strings.Builder
	t.render(&sb)
	return sb.String()
}

func (t *Type) render(sb *strings.Builder) {
	switch t.kind {
	case KindScalar:
		if t.optional {
			sb.WriteByte('?')
		}
		sb.WriteString(t.dtype.String())
	case KindFixedDim:
		fmt.Fprintf(sb, "%d * ", t.shape)
		t.elem.render(sb)
	case KindVarDim:
		sb.WriteString("var * ")
		t.elem.render(sb)
	case KindTuple:
		sb.WriteByte('(')
		for i, f := range t.fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			f.Type.render(sb)
		}
		sb.WriteByte(')')
	case KindRecord:
		sb.WriteByte('{')
		for i, f := range t.fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			f.Type.render(sb)
		}
		sb.WriteByte('}')
	case KindAny:
		sb.WriteString("Any")
	default:
		sb.WriteString("invalid")
	}
}
