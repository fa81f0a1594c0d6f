package mem

import (
	"unsafe"
)

// Alignment is the byte alignment of allocated buffers (one cache line).
const Alignment = 64

// AllocAligned allocates a zero-initialized byte slice of the given size
// whose first byte sits on a 64-byte boundary. Sizes <= 0 return nil.
//
// Note: slightly more memory than requested is allocated to find an aligned
// offset. The underlying array is kept alive by the returned slice.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	// Over-allocate so an aligned start can always be found.
	buf := make([]byte, size+Alignment)

	ptr := unsafe.Pointer(&buf[0]) //nolint:gosec // unsafe is required for memory alignment
	addr := uintptr(ptr)
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	return buf[offset : offset+uintptr(size)]
}
