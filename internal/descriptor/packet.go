// Package descriptor builds scatter-gather descriptor rings for the XDMA
// engine's C2H channel and accounts for completed transfer lengths from the
// writeback region.
package descriptor

import "encoding/binary"

const (
	// DescSize is the on-wire size of one descriptor record.
	DescSize = 32
	// WritebackSize is the on-wire size of one writeback record.
	WritebackSize = 8

	// ChunkSize is the fixed per-descriptor transfer size: 128 MiB.
	ChunkSize = 1 << 27

	// descMagic occupies bits [31:16] of every descriptor's control word.
	descMagic = 0xAD4B

	maxNxtAdj = 0x3F

	controlStopBit      = 1 << 0
	controlCompletedBit = 1 << 1
	nxtAdjShift         = 8
)

// buildControl composes a descriptor's control word: magic in [31:16],
// next-adjacent-count in [13:8], and the completed/stop flags.
func buildControl(nxtAdj int, completed, stop bool) uint32 {
	if nxtAdj < 0 {
		nxtAdj = 0
	}
	if nxtAdj > maxNxtAdj {
		nxtAdj = maxNxtAdj
	}

	c := uint32(descMagic) << 16
	c |= uint32(nxtAdj) << nxtAdjShift
	if completed {
		c |= controlCompletedBit
	}
	if stop {
		c |= controlStopBit
	}
	return c
}

// writeDescriptor encodes one 32-byte descriptor record into buf[i*DescSize:].
// For a C2H transfer the engine reads the descriptor's "destination" fields
// as the host data sink and its "source" fields as the writeback sink; dst
// and src below name the wire fields, not transfer direction.
func writeDescriptor(buf []byte, i int, control, byteCount uint32, dstAddr, srcAddr, next uint64) {
	d := buf[i*DescSize : i*DescSize+DescSize]

	binary.LittleEndian.PutUint32(d[0:4], control)
	binary.LittleEndian.PutUint32(d[4:8], byteCount)
	binary.LittleEndian.PutUint32(d[8:12], uint32(srcAddr))
	binary.LittleEndian.PutUint32(d[12:16], uint32(srcAddr>>32))
	binary.LittleEndian.PutUint32(d[16:20], uint32(dstAddr))
	binary.LittleEndian.PutUint32(d[20:24], uint32(dstAddr>>32))
	binary.LittleEndian.PutUint32(d[24:28], uint32(next))
	binary.LittleEndian.PutUint32(d[28:32], uint32(next>>32))
}

// readDescriptorControl reads back descriptor i's control word, used by
// tests to check the encoded flags.
func readDescriptorControl(buf []byte, i int) uint32 {
	return binary.LittleEndian.Uint32(buf[i*DescSize : i*DescSize+4])
}

func readDescriptorField(buf []byte, i int, byteOff int) uint32 {
	base := i*DescSize + byteOff
	return binary.LittleEndian.Uint32(buf[base : base+4])
}

// readDescriptorField64 reads a 64-bit descriptor field (src/dst/next,
// stored as adjacent low/high uint32 words) starting at byteOff.
func readDescriptorField64(buf []byte, i int, byteOff int) uint64 {
	lo := readDescriptorField(buf, i, byteOff)
	hi := readDescriptorField(buf, i, byteOff+4)
	return uint64(lo) | uint64(hi)<<32
}

// writebackLength reads the transferred-length field of writeback slot i.
func writebackLength(buf []byte, i int) uint32 {
	base := i*WritebackSize + 4
	return binary.LittleEndian.Uint32(buf[base : base+4])
}
