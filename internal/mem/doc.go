// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Provides 64-byte aligned, zero-initialized allocation for bit-packed
// buffers that are scanned with wide loads.
package mem
