package descriptor

import (
	"fmt"

	"github.com/snalvc/xdma-uio-udrv/internal/hugepage"
)

// descsPerPage is the number of ChunkSize descriptors that fit in one 1 GiB
// data page.
const descsPerPage = (1 << 30) / ChunkSize

// DefaultMaxSize is the soft cap on total transfer size a ScatterBuffer
// will build a ring for: 3 GiB, matching the upstream driver's default.
// Callers needing more room pass a larger maxSize to NewScatterBuffer.
const DefaultMaxSize = 3 * (1 << 30)

// ScatterBuffer chains one or more 1 GiB data huge pages behind a single
// 2 MiB descriptor/writeback huge page to cover transfers larger than one
// huge page.
type ScatterBuffer struct {
	pages   []hugepage.Page
	descWb  hugepage.Page
	nDesc   int
	maxSize uint64
}

// NewScatterBuffer allocates ceil(maxSize/1GiB) data pages plus one
// descriptor/writeback page via alloc. maxSize <= 0 defaults to
// DefaultMaxSize. Construction is all-or-nothing.
func NewScatterBuffer(alloc Allocator, maxSize uint64) (*ScatterBuffer, error) {
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}

	const oneGiB = 1 << 30
	numPages := int((maxSize + oneGiB - 1) / oneGiB)

	pages := make([]hugepage.Page, 0, numPages)
	cleanup := func() {
		for _, p := range pages {
			p.Close()
		}
	}

	for i := 0; i < numPages; i++ {
		p, err := alloc(hugepage.Size1GiB)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("descriptor: allocate data page %d/%d: %w", i+1, numPages, err)
		}
		pages = append(pages, p)
	}

	descWb, err := alloc(hugepage.Size2MiB)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("descriptor: allocate descriptor/writeback page: %w", err)
	}

	return &ScatterBuffer{pages: pages, descWb: descWb, maxSize: maxSize}, nil
}

// Close releases every underlying huge page.
func (b *ScatterBuffer) Close() error {
	var first error
	for _, p := range b.pages {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := b.descWb.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

func (b *ScatterBuffer) descBytes() []byte {
	return rawBytes(b.descWb.VAddr(), b.descWb.Len())
}

func (b *ScatterBuffer) wbOffset() uint64 {
	return uint64(b.descWb.Len() / 2)
}

// Initialize builds the descriptor ring for a transfer of xferSize bytes,
// 0 < xferSize <= maxSize. Descriptors are grouped into blocks of
// descsPerPage (one data page's worth); within a full block j ranges over
// 0..descsPerPage-1 and nxt_adj is max(0, descsPerPage-2-j), matching the
// within-page chaining used when every descriptor in the block is
// ChunkSize-adjacent in the same data page. The final, possibly partial,
// block of r descriptors uses the same formula against r instead of
// descsPerPage. Descriptor i's data address is pages[i/descsPerPage].PAddr()
// + (i%descsPerPage)*ChunkSize.
func (b *ScatterBuffer) Initialize(xferSize uint64) error {
	if xferSize == 0 || xferSize > b.maxSize {
		return fmt.Errorf("%w: %d bytes (scatter buffer covers %d bytes)", ErrSizeOutOfRange, xferSize, b.maxSize)
	}

	buf := b.descBytes()
	clear(buf)

	n := int((xferSize + ChunkSize - 1) / ChunkSize)
	b.nDesc = n

	descPhys := b.descWb.PAddr()
	wbPhys := descPhys + b.wbOffset()

	for i := 0; i < n; i++ {
		last := i == n-1

		var next uint64
		if !last {
			next = descPhys + uint64(i+1)*DescSize
		}

		blockStart := (i / descsPerPage) * descsPerPage
		blockLen := n - blockStart
		if blockLen > descsPerPage {
			blockLen = descsPerPage
		}
		j := i - blockStart
		nxtAdj := blockLen - 2 - j

		control := buildControl(nxtAdj, last, last)

		page := b.pages[i/descsPerPage]
		dstAddr := page.PAddr() + uint64(i%descsPerPage)*ChunkSize
		srcAddr := wbPhys + uint64(i)*WritebackSize

		writeDescriptor(buf, i, control, ChunkSize, dstAddr, srcAddr, next)
	}

	return nil
}

// NDesc returns the descriptor count from the last Initialize call.
func (b *ScatterBuffer) NDesc() int { return b.nDesc }

// XferedSize sums the transferred-length field of every writeback slot.
func (b *ScatterBuffer) XferedSize() uint64 {
	buf := b.descBytes()
	wbBuf := buf[b.wbOffset():]

	var total uint64
	for i := 0; i < b.nDesc; i++ {
		total += uint64(writebackLength(wbBuf, i))
	}
	return total
}

// DescBufferPAddr returns the descriptor/writeback page's physical address,
// the value programmed into the SGDMA first-descriptor registers.
func (b *ScatterBuffer) DescBufferPAddr() uint64 { return b.descWb.PAddr() }

// DataPageVAddr returns the virtual address of data page idx, for copying
// transferred data out after a transfer completes.
func (b *ScatterBuffer) DataPageVAddr(idx int) uintptr { return b.pages[idx].VAddr() }

// NumDataPages returns the number of 1 GiB data pages backing this buffer.
func (b *ScatterBuffer) NumDataPages() int { return len(b.pages) }

// ChunkLength returns the writeback-reported transferred length of
// descriptor i.
func (b *ScatterBuffer) ChunkLength(i int) uint32 {
	buf := b.descBytes()
	wbBuf := buf[b.wbOffset():]
	return writebackLength(wbBuf, i)
}

// ChunkData returns the full ChunkSize data region that descriptor i wrote
// into, addressed within its backing 1 GiB page.
func (b *ScatterBuffer) ChunkData(i int) []byte {
	page := b.pages[i/descsPerPage]
	all := rawBytes(page.VAddr(), page.Len())
	off := (i % descsPerPage) * ChunkSize
	return all[off : off+ChunkSize]
}
