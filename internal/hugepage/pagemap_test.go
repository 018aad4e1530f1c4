package hugepage

import (
	"encoding/binary"
	"errors"
	"testing"
)

// fakePagemap is a software stub standing in for /proc/self/pagemap: an
// 8-byte little-endian entry per page, matching the real file's layout.
type fakePagemap struct {
	entries map[int64]uint64 // offset -> raw 8-byte entry
}

func (f fakePagemap) ReadAt(p []byte, off int64) (int, error) {
	entry, ok := f.entries[off]
	if !ok {
		return 0, errors.New("no entry at offset")
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], entry)
	n := copy(p, buf[:])
	return n, nil
}

func TestPagemapEntryToPhysAddr(t *testing.T) {
	const pageSize = 4096

	t.Run("resolves PFN to physical address", func(t *testing.T) {
		vaddr := uintptr(pageSize * 10)
		offset := int64(10) * 8
		const pfn = 0x1234
		stub := fakePagemap{entries: map[int64]uint64{offset: pfn | (1 << 63)}}

		got, err := pagemapEntryToPhysAddr(stub, vaddr, pageSize)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := uint64(pfn) * pageSize; got != want {
			t.Fatalf("got 0x%x, want 0x%x", got, want)
		}
	})

	t.Run("zero PFN is a failure", func(t *testing.T) {
		vaddr := uintptr(pageSize * 3)
		offset := int64(3) * 8
		stub := fakePagemap{entries: map[int64]uint64{offset: 0}}

		_, err := pagemapEntryToPhysAddr(stub, vaddr, pageSize)
		if !errors.Is(err, ErrPhysAddrUnavailable) {
			t.Fatalf("got %v, want ErrPhysAddrUnavailable", err)
		}
	})

	t.Run("ignores bits above the 54-bit PFN field", func(t *testing.T) {
		vaddr := uintptr(pageSize * 1)
		offset := int64(1) * 8
		const pfn = 0xABCDEF
		// Set soft-dirty (55) and exclusive (56) bits alongside the PFN.
		raw := uint64(pfn) | (1 << 55) | (1 << 56)
		stub := fakePagemap{entries: map[int64]uint64{offset: raw}}

		got, err := pagemapEntryToPhysAddr(stub, vaddr, pageSize)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := uint64(pfn) * pageSize; got != want {
			t.Fatalf("got 0x%x, want 0x%x", got, want)
		}
	})
}

func TestSizeClassBytes(t *testing.T) {
	if Size2MiB.Bytes() != 2*1024*1024 {
		t.Fatalf("Size2MiB.Bytes() = %d", Size2MiB.Bytes())
	}
	if Size1GiB.Bytes() != 1024*1024*1024 {
		t.Fatalf("Size1GiB.Bytes() = %d", Size1GiB.Bytes())
	}
}
