// Package barmap maps a single PCIe Base Address Register window from
// /dev/mem into process memory.
package barmap

import (
	"fmt"
	"log/slog"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Map is a read-write, shared, hardware-uncached mapping of one BAR window.
// It is single-owner: Close releases the mapping exactly once.
type Map struct {
	mem  []byte
	base uintptr
	len  int
}

// Open maps length bytes of physical memory starting at physStart. The
// mapping is read-write and shared with device memory, matching the
// BAR_wrapper constructor in the original driver: open /dev/mem with
// O_SYNC, mmap the window, then close the descriptor (the mapping
// survives the close).
func Open(physStart uint64, length int) (*Map, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: non-positive length %d", ErrMapFailed, length)
	}

	fd, err := unix.Open("/dev/mem", unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open /dev/mem: %w", ErrMapFailed, err)
	}
	defer unix.Close(fd)

	mem, err := unix.Mmap(fd, int64(physStart), length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap @0x%x len=%d: %w", ErrMapFailed, physStart, length, err)
	}

	slog.Debug("barmap: mapped BAR window", "phys", fmt.Sprintf("0x%x", physStart), "len", length)

	return &Map{
		mem:  mem,
		base: uintptr(unsafe.Pointer(&mem[0])),
		len:  length,
	}, nil
}

// VAddr returns the process-local virtual base address of the mapping.
func (m *Map) VAddr() uintptr { return m.base }

// Len returns the mapping length in bytes.
func (m *Map) Len() int { return m.len }

// Bytes exposes the raw mapped window for register access helpers.
func (m *Map) Bytes() []byte { return m.mem }

// Close unmaps the window. Safe to call at most once.
func (m *Map) Close() error {
	if m.mem == nil {
		return nil
	}
	err := unix.Munmap(m.mem)
	m.mem = nil
	if err != nil {
		return fmt.Errorf("barmap: munmap: %w", err)
	}
	return nil
}
