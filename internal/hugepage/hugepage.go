// Package hugepage allocates anonymous huge-page-backed memory regions and
// resolves their bus-visible physical addresses for use as DMA descriptor
// and data buffers.
package hugepage

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// SizeClass is the nominal huge-page size a Page was allocated with.
type SizeClass int

const (
	Size2MiB SizeClass = iota
	Size1GiB
)

// Bytes returns the nominal length in bytes for the size class.
func (c SizeClass) Bytes() int {
	switch c {
	case Size1GiB:
		return 1 << 30
	default:
		return 1 << 21
	}
}

func (c SizeClass) String() string {
	switch c {
	case Size1GiB:
		return "1GiB"
	default:
		return "2MiB"
	}
}

// mapHugeShift/mapHuge2MB/mapHuge1GB encode the huge-page size selector in
// the upper bits of the mmap flags word, per Linux's mman-common.h. These
// are not exposed by golang.org/x/sys/unix as named constants.
const (
	mapHugeShift = 26
	mapHuge2MB   = 21 << mapHugeShift
	mapHuge1GB   = 30 << mapHugeShift
)

// Page is a single huge-page-backed DMA buffer: a virtual address usable by
// this process and the physical (bus-visible) address the device must be
// given instead. Implementations are single-owner and not copyable; Close
// releases the mapping exactly once.
type Page interface {
	VAddr() uintptr
	PAddr() uint64
	Len() int
	SizeClass() SizeClass
	Close() error
}

type mmapPage struct {
	mem   []byte
	vaddr uintptr
	paddr uint64
	class SizeClass
}

// Allocate maps one huge page of the requested size class, forces it
// resident, and resolves its physical address. Construction is all-or
// nothing: on any failure the partially built mapping is torn down and no
// Page is returned.
func Allocate(class SizeClass) (Page, error) {
	flags := unix.MAP_PRIVATE | unix.MAP_ANONYMOUS | unix.MAP_HUGETLB
	switch class {
	case Size1GiB:
		flags |= mapHuge1GB
	default:
		flags |= mapHuge2MB
	}

	size := class.Bytes()

	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %s region: %w", ErrAllocFailed, class, err)
	}

	vaddr := vaddrOf(mem)

	if err := touch(mem); err != nil {
		unix.Munmap(mem)
		return nil, fmt.Errorf("%w: fault in %s region: %w", ErrAllocFailed, class, err)
	}

	paddr, err := resolvePhysAddr(vaddr, unix.Getpagesize())
	if err != nil {
		unix.Munmap(mem)
		return nil, err
	}

	slog.Debug("hugepage: allocated", "class", class.String(), "vaddr", fmt.Sprintf("0x%x", vaddr), "paddr", fmt.Sprintf("0x%x", paddr))

	return &mmapPage{mem: mem, vaddr: vaddr, paddr: paddr, class: class}, nil
}

// touch forces the kernel to bind the physical page before it is needed on
// a time-critical path: read the leading word, write a sentinel, restore
// it, so the region is not left to fault in lazily later.
func touch(mem []byte) error {
	if len(mem) < 4 {
		return fmt.Errorf("region too small to fault in")
	}
	original := binary.LittleEndian.Uint32(mem[:4])
	binary.LittleEndian.PutUint32(mem[:4], 0xA5A5A5A5)
	binary.LittleEndian.PutUint32(mem[:4], original)
	return nil
}

func (p *mmapPage) VAddr() uintptr      { return p.vaddr }
func (p *mmapPage) PAddr() uint64       { return p.paddr }
func (p *mmapPage) Len() int            { return len(p.mem) }
func (p *mmapPage) SizeClass() SizeClass { return p.class }

func (p *mmapPage) Close() error {
	if p.mem == nil {
		return nil
	}
	err := unix.Munmap(p.mem)
	p.mem = nil
	if err != nil {
		return fmt.Errorf("hugepage: munmap: %w", err)
	}
	return nil
}
