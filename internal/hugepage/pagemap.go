package hugepage

import (
	"fmt"
	"io"
	"os"
)

// pfnMask selects the lower 54 bits of a pagemap entry, which hold the page
// frame number; bit 63 is the present flag, which this driver does not need
// once the page has been forced resident by touching it.
const pfnMask = (uint64(1) << 54) - 1

// resolvePhysAddr maps a process-local virtual address to its bus-visible
// physical address by reading /proc/self/pagemap. pageSize here is always
// the kernel's standard page size (unix.Getpagesize(), normally 4 KiB) —
// /proc/self/pagemap indexes and reports page frame numbers in units of
// that system page size regardless of how the virtual region was mapped,
// so callers must never pass a huge page's own size class here. Requires
// CAP_SYS_ADMIN; a zero PFN surfaces as ErrPhysAddrUnavailable.
func resolvePhysAddr(vaddr uintptr, pageSize int) (uint64, error) {
	f, err := os.Open("/proc/self/pagemap")
	if err != nil {
		return 0, fmt.Errorf("%w: open pagemap: %w", ErrPhysAddrUnavailable, err)
	}
	defer f.Close()

	return pagemapEntryToPhysAddr(f, vaddr, pageSize)
}

// pagemapEntryToPhysAddr implements the pagemap lookup against any
// io.ReaderAt, so the parsing logic can be exercised in tests against a
// software stub instead of the real /proc/self/pagemap.
func pagemapEntryToPhysAddr(r io.ReaderAt, vaddr uintptr, pageSize int) (uint64, error) {
	entryOffset := (int64(vaddr) / int64(pageSize)) * 8

	var buf [8]byte
	if _, err := r.ReadAt(buf[:], entryOffset); err != nil {
		return 0, fmt.Errorf("%w: read pagemap at offset %d: %w", ErrPhysAddrUnavailable, entryOffset, err)
	}

	entry := uint64(0)
	for i := 7; i >= 0; i-- {
		entry = entry<<8 | uint64(buf[i])
	}

	pfn := entry & pfnMask
	if pfn == 0 {
		return 0, ErrPhysAddrUnavailable
	}

	return pfn * uint64(pageSize), nil
}
