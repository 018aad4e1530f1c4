package hugepage

import "unsafe"

func vaddrOf(mem []byte) uintptr {
	return uintptr(unsafe.Pointer(&mem[0]))
}
