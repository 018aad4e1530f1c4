package descriptor

import (
	"encoding/binary"
	"unsafe"

	"github.com/snalvc/xdma-uio-udrv/internal/hugepage"
)

// fakePage is a software stub standing in for a real huge page: it backs
// VAddr with an actual Go byte slice so descriptor encoding can run
// in-process, and assigns an arbitrary but stable physical address so
// chaining math can be checked without real hardware.
type fakePage struct {
	mem    []byte
	paddr  uint64
	class  hugepage.SizeClass
	closed bool
}

func newFakePage(class hugepage.SizeClass, paddr uint64) *fakePage {
	return &fakePage{mem: make([]byte, class.Bytes()), paddr: paddr, class: class}
}

func (p *fakePage) VAddr() uintptr          { return uintptr(unsafe.Pointer(&p.mem[0])) }
func (p *fakePage) PAddr() uint64           { return p.paddr }
func (p *fakePage) Len() int                { return len(p.mem) }
func (p *fakePage) SizeClass() hugepage.SizeClass { return p.class }
func (p *fakePage) Close() error            { p.closed = true; return nil }

// fakeAllocator returns an Allocator that hands out fakePages with
// deterministic, increasing physical addresses so tests can predict the
// chaining math.
func fakeAllocator() (Allocator, *[]*fakePage) {
	var nextPAddr uint64 = 0x1000000000
	pages := make([]*fakePage, 0)
	alloc := func(class hugepage.SizeClass) (hugepage.Page, error) {
		p := newFakePage(class, nextPAddr)
		nextPAddr += uint64(class.Bytes())
		pages = append(pages, p)
		return p, nil
	}
	return alloc, &pages
}

// writeWritebackForTest encodes a writeback record (status, length) into
// slot i, standing in for what the engine writes on completion.
func writeWritebackForTest(wb []byte, i int, length uint32) {
	base := i * WritebackSize
	binary.LittleEndian.PutUint32(wb[base:base+4], 1) // status: done
	binary.LittleEndian.PutUint32(wb[base+4:base+8], length)
}
