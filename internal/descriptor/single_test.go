package descriptor

import (
	"errors"
	"testing"
)

func TestSingleBufferInitializeBuildsChain(t *testing.T) {
	alloc, _ := fakeAllocator()
	buf, err := NewSingleBuffer(alloc)
	if err != nil {
		t.Fatalf("NewSingleBuffer: %v", err)
	}
	defer buf.Close()

	// 256 MiB over a 128 MiB chunk size: two descriptors.
	const xferSize = 256 << 20
	if err := buf.Initialize(xferSize); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if buf.NDesc() != 2 {
		t.Fatalf("NDesc() = %d, want 2", buf.NDesc())
	}

	descs := buf.descBytes()

	c0 := readDescriptorControl(descs, 0)
	if nxtAdj := (c0 >> nxtAdjShift) & maxNxtAdj; nxtAdj != 0 {
		t.Fatalf("descriptor 0 nxt_adj = %d, want 0", nxtAdj)
	}
	if c0&controlStopBit != 0 || c0&controlCompletedBit != 0 {
		t.Fatalf("descriptor 0 should not be stop/completed, control = 0x%x", c0)
	}
	if magic := c0 >> 16; magic != descMagic {
		t.Fatalf("descriptor 0 magic = 0x%x, want 0x%x", magic, descMagic)
	}

	c1 := readDescriptorControl(descs, 1)
	if c1&controlStopBit == 0 || c1&controlCompletedBit == 0 {
		t.Fatalf("last descriptor should have stop and completed set, control = 0x%x", c1)
	}

	next0 := readDescriptorField64(descs, 0, 24)
	wantNext0 := buf.DescBufferPAddr() + DescSize
	if next0 != wantNext0 {
		t.Fatalf("descriptor 0 next = 0x%x, want 0x%x", next0, wantNext0)
	}

	next1 := readDescriptorField64(descs, 1, 24)
	if next1 != 0 {
		t.Fatalf("last descriptor next should be zero, got 0x%x", next1)
	}

	byteCount0 := readDescriptorField(descs, 0, 4)
	if byteCount0 != ChunkSize {
		t.Fatalf("descriptor 0 byte count = %d, want %d", byteCount0, ChunkSize)
	}
}

func TestSingleBufferRejectsOversizeTransfer(t *testing.T) {
	alloc, _ := fakeAllocator()
	buf, err := NewSingleBuffer(alloc)
	if err != nil {
		t.Fatalf("NewSingleBuffer: %v", err)
	}
	defer buf.Close()

	err = buf.Initialize(1 << 31) // 2 GiB, larger than the 1 GiB data page
	if !errors.Is(err, ErrSizeOutOfRange) {
		t.Fatalf("err = %v, want ErrSizeOutOfRange", err)
	}
}

func TestSingleBufferXferedSize(t *testing.T) {
	alloc, _ := fakeAllocator()
	buf, err := NewSingleBuffer(alloc)
	if err != nil {
		t.Fatalf("NewSingleBuffer: %v", err)
	}
	defer buf.Close()

	const xferSize = 256 << 20
	if err := buf.Initialize(xferSize); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	// Simulate the engine filling in writeback records for both chunks.
	descs := buf.descBytes()
	wb := descs[buf.wbOffset():]
	writeWritebackForTest(wb, 0, ChunkSize)
	writeWritebackForTest(wb, 1, ChunkSize)

	if got := buf.XferedSize(); got != 2*ChunkSize {
		t.Fatalf("XferedSize() = %d, want %d", got, 2*ChunkSize)
	}
}

func TestSingleBufferCloseReleasesBothPages(t *testing.T) {
	alloc, pages := fakeAllocator()
	buf, err := NewSingleBuffer(alloc)
	if err != nil {
		t.Fatalf("NewSingleBuffer: %v", err)
	}
	if err := buf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for i, p := range *pages {
		if !p.closed {
			t.Fatalf("page %d was not closed", i)
		}
	}
}
