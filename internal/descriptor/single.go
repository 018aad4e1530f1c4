package descriptor

import (
	"fmt"

	"github.com/snalvc/xdma-uio-udrv/internal/hugepage"
)

// Allocator requests one huge page of the given size class; production
// code passes hugepage.Allocate, tests pass a fake.
type Allocator func(hugepage.SizeClass) (hugepage.Page, error)

// SingleBuffer pairs one 1 GiB data huge page with one 2 MiB
// descriptor/writeback huge page (split in half: descriptors in the lower
// 1 MiB, writeback records in the upper 1 MiB) and builds a linear
// descriptor chain for transfers up to 1 GiB.
type SingleBuffer struct {
	data   hugepage.Page
	descWb hugepage.Page
	nDesc  int
}

// NewSingleBuffer allocates the data and descriptor/writeback pages via
// alloc. Construction is all-or-nothing: on failure any page already
// allocated is released.
func NewSingleBuffer(alloc Allocator) (*SingleBuffer, error) {
	data, err := alloc(hugepage.Size1GiB)
	if err != nil {
		return nil, fmt.Errorf("descriptor: allocate data page: %w", err)
	}

	descWb, err := alloc(hugepage.Size2MiB)
	if err != nil {
		data.Close()
		return nil, fmt.Errorf("descriptor: allocate descriptor/writeback page: %w", err)
	}

	return &SingleBuffer{data: data, descWb: descWb}, nil
}

// Close releases both underlying huge pages.
func (b *SingleBuffer) Close() error {
	err1 := b.data.Close()
	err2 := b.descWb.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func (b *SingleBuffer) descBytes() []byte {
	return rawBytes(b.descWb.VAddr(), b.descWb.Len())
}

func (b *SingleBuffer) wbOffset() uint64 {
	return uint64(b.descWb.Len() / 2)
}

// Initialize builds a linear descriptor chain for a transfer of xferSize
// bytes, 0 < xferSize <= 1 GiB. Descriptor count is ceil(xferSize/ChunkSize);
// every descriptor, the last included, has byte-count == ChunkSize; every
// descriptor but the last chains to the next via its next-pointer; the last
// descriptor has the stop and completed bits set and a zero next-pointer.
func (b *SingleBuffer) Initialize(xferSize uint64) error {
	if xferSize == 0 || xferSize > uint64(b.data.Len()) {
		return fmt.Errorf("%w: %d bytes (data page is %d bytes)", ErrSizeOutOfRange, xferSize, b.data.Len())
	}

	buf := b.descBytes()
	clear(buf)

	n := int((xferSize + ChunkSize - 1) / ChunkSize)
	b.nDesc = n

	descPhys := b.descWb.PAddr()
	dataPhys := b.data.PAddr()
	wbPhys := descPhys + b.wbOffset()

	for i := 0; i < n; i++ {
		last := i == n-1

		var next uint64
		if !last {
			next = descPhys + uint64(i+1)*DescSize
		}

		nxtAdj := n - 2 - i
		control := buildControl(nxtAdj, last, last)

		dstAddr := dataPhys + uint64(i)*ChunkSize
		srcAddr := wbPhys + uint64(i)*WritebackSize

		writeDescriptor(buf, i, control, ChunkSize, dstAddr, srcAddr, next)
	}

	return nil
}

// NDesc returns the descriptor count from the last Initialize call.
func (b *SingleBuffer) NDesc() int { return b.nDesc }

// XferedSize sums the transferred-length field of every writeback slot.
func (b *SingleBuffer) XferedSize() uint64 {
	buf := b.descBytes()
	wbBuf := buf[b.wbOffset():]

	var total uint64
	for i := 0; i < b.nDesc; i++ {
		total += uint64(writebackLength(wbBuf, i))
	}
	return total
}

// DataBufferVAddr returns the data page's virtual address.
func (b *SingleBuffer) DataBufferVAddr() uintptr { return b.data.VAddr() }

// DataBufferPAddr returns the data page's physical address.
func (b *SingleBuffer) DataBufferPAddr() uint64 { return b.data.PAddr() }

// DescBufferVAddr returns the descriptor/writeback page's virtual address.
func (b *SingleBuffer) DescBufferVAddr() uintptr { return b.descWb.VAddr() }

// DescBufferPAddr returns the descriptor/writeback page's physical address,
// the value programmed into the SGDMA first-descriptor registers.
func (b *SingleBuffer) DescBufferPAddr() uint64 { return b.descWb.PAddr() }
