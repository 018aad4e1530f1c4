package xdmareg

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// RegFile performs 32-bit little-endian volatile register access against
// the control BAR's mapped virtual window.
type RegFile struct {
	base uintptr
	len  int
}

// New wraps an already-mapped control-BAR window. base and length normally
// come from Device.ControlBar()'s VAddr()/Len().
func New(base uintptr, length int) *RegFile {
	return &RegFile{base: base, len: length}
}

// Write performs a 32-bit volatile store of value at addr & 0xFFFF, then
// immediately reads the same location back and returns it. Callers use the
// readback for diagnostics; it also forces the store to complete before
// Write returns, establishing write-then-read ordering on x86-64.
func (r *RegFile) Write(addr uint32, value uint32) uint32 {
	off := addr & addrMask
	r.store32(off, value)
	return r.load32(off)
}

// WriteTarget is the (target, channel, offset) overload of Write.
func (r *RegFile) WriteTarget(target Target, channel uint8, offset uint8, value uint32) uint32 {
	return r.Write(Encode(target, channel, offset), value)
}

// Read performs a 32-bit volatile load at addr & 0xFFFF.
func (r *RegFile) Read(addr uint32) uint32 {
	return r.load32(addr & addrMask)
}

// ReadTarget is the (target, channel, offset) overload of Read.
func (r *RegFile) ReadTarget(target Target, channel uint8, offset uint8) uint32 {
	return r.Read(Encode(target, channel, offset))
}

// load32/store32 perform the access through sync/atomic over an
// unsafe.Pointer overlay of the mapped window. Go has no volatile
// qualifier; atomic load/store is the standard substitute used to stop the
// compiler from eliding, fusing, or reordering the access, which is the
// overlay idiom this driver's MMIO access is grounded on.
func (r *RegFile) load32(byteOffset uint32) uint32 {
	r.checkBounds(byteOffset)
	ptr := (*uint32)(unsafe.Pointer(r.base + uintptr(byteOffset)))
	return atomic.LoadUint32(ptr)
}

func (r *RegFile) store32(byteOffset uint32, value uint32) {
	r.checkBounds(byteOffset)
	ptr := (*uint32)(unsafe.Pointer(r.base + uintptr(byteOffset)))
	atomic.StoreUint32(ptr, value)
}

func (r *RegFile) checkBounds(byteOffset uint32) {
	if int(byteOffset)+4 > r.len {
		panic(fmt.Sprintf("xdmareg: offset 0x%x out of bounds for %d-byte control BAR", byteOffset, r.len))
	}
}
