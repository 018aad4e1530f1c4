package descriptor

import "unsafe"

// rawBytes overlays a huge page's mapped virtual address as a byte slice so
// descriptor and writeback records can be encoded/decoded with
// encoding/binary. length is the page's full size; callers never retain the
// slice past the page's lifetime.
func rawBytes(vaddr uintptr, length int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(vaddr)), length)
}
