package validity

import (
	"fmt"

	"github.com/hupe1980/nested/typedesc"
)

// Position is a resolved element position: the type at that position, the
// flattened index within its repetition group, and the bitmap node
// responsible for it. Positions are produced by the container's indexing
// logic; this package only interprets them.
type Position struct {
	Type   *typedesc.Type
	Index  int64
	Bitmap *Bitmap
}

// SetValid marks the element as present.
//
// The position's type must be optional and the index must be within the
// range covered by the bitmap's buffer; violating either is a caller bug
// and panics.
func (p Position) SetValid() {
	if !p.Type.Optional() {
		panic(fmt.Sprintf("validity: SetValid on non-optional type %s", p.Type))
	}
	if p.Index < 0 || p.Index/8 >= int64(len(p.Bitmap.data)) {
		panic(fmt.Sprintf("validity: index %d out of range for %d-byte bitmap", p.Index, len(p.Bitmap.data)))
	}
	p.Bitmap.data[p.Index/8] |= 1 << (p.Index % 8)
}

// IsValid reports whether the element is present. Non-optional types are
// never NA, so no bit is consulted for them.
func (p Position) IsValid() bool {
	if !p.Type.Optional() {
		return true
	}
	return p.isValid()
}

// IsNA reports whether the element is missing. Defined as the exact
// complement of IsValid for optional types; always false otherwise.
func (p Position) IsNA() bool {
	if !p.Type.Optional() {
		return false
	}
	return !p.isValid()
}

func (p Position) isValid() bool {
	return p.Bitmap.data[p.Index/8]&(1<<(p.Index%8)) != 0
}
