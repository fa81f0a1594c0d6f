package validity

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/RoaringBitmap/roaring/v2"
)

// ValidSet returns the valid indices in [0, nitems) of a leaf node as a
// roaring bitmap, suitable for filter-style set operations. The node must
// be a Leaf covering at least nitems elements (nitems == 0 is fine on any
// node).
//
// Roaring indices are 32-bit; nitems above 1<<32 cannot be represented and
// panic. Leaves that large exist only through extreme dimension inflation;
// count with CountValid instead of materializing a set.
func (b *Bitmap) ValidSet(nitems int64) *roaring.Bitmap {
	if nitems > math.MaxUint32+1 {
		panic(fmt.Sprintf("validity: %d elements exceed the 32-bit set index space", nitems))
	}
	rb := roaring.New()
	for i := int64(0); i < nitems; i++ {
		if b.data[i/8]&(1<<(i%8)) != 0 {
			rb.Add(uint32(i)) //nolint:gosec // G115: bounded above
		}
	}
	return rb
}

// NASet returns the missing indices in [0, nitems) of a leaf node as a
// roaring bitmap. It is the complement of ValidSet over that range; the
// 32-bit bound of ValidSet applies.
func (b *Bitmap) NASet(nitems int64) *roaring.Bitmap {
	rb := b.ValidSet(nitems)
	rb.Flip(0, uint64(nitems))
	return rb
}

// CountValid returns the number of valid elements in [0, nitems) of a leaf
// node.
func (b *Bitmap) CountValid(nitems int64) int64 {
	var count int64
	full := nitems / 8
	for i := int64(0); i < full; i++ {
		count += int64(bits.OnesCount8(b.data[i]))
	}
	if rem := nitems % 8; rem > 0 {
		mask := byte(1<<rem) - 1
		count += int64(bits.OnesCount8(b.data[full] & mask))
	}
	return count
}

// CountNA returns the number of missing elements in [0, nitems) of a leaf
// node.
func (b *Bitmap) CountNA(nitems int64) int64 {
	return nitems - b.CountValid(nitems)
}
