// Package device assembles a Device from sysfs-discovered BAR windows and
// identifies which one holds the XDMA control-register file.
package device

import (
	"fmt"

	"github.com/snalvc/xdma-uio-udrv/internal/sysfsuio"
)

// maxBars is the number of BAR slots a PCIe function can expose. It mirrors
// sysfsuio.MaxBars rather than redeclaring it, since both describe the same
// PCIe constraint.
const maxBars = sysfsuio.MaxBars

// BarWindow is the subset of barmap.Map the factory and identification
// heuristic need; it lets tests substitute an in-memory fake for the real
// /dev/mem mapping.
type BarWindow interface {
	VAddr() uintptr
	Len() int
	Bytes() []byte
	Close() error
}

// Device is a single-owner handle on one UIO-exposed PCIe function: its
// populated BAR windows and which one holds the control-register file.
type Device struct {
	UioIndex        int
	NumBars         int
	ControlBarIndex int

	bars [maxBars]BarWindow
}

// BarVAddr returns the virtual base address of BAR index, or false if that
// slot is unpopulated or out of range. Indices >= maxBars are rejected,
// closing the off-by-one accepted by the original bar_vaddr/bar_len.
func (d *Device) BarVAddr(index int) (uintptr, bool) {
	if index < 0 || index >= maxBars || d.bars[index] == nil {
		return 0, false
	}
	return d.bars[index].VAddr(), true
}

// BarLen returns the length of BAR index, or false if unpopulated/out of
// range.
func (d *Device) BarLen(index int) (int, bool) {
	if index < 0 || index >= maxBars || d.bars[index] == nil {
		return 0, false
	}
	return d.bars[index].Len(), true
}

// ControlBar returns the BAR window identified as the control-register
// file.
func (d *Device) ControlBar() BarWindow {
	return d.bars[d.ControlBarIndex]
}

// Close unmaps every populated BAR exactly once.
func (d *Device) Close() error {
	var firstErr error
	for i, bar := range d.bars {
		if bar == nil {
			continue
		}
		if err := bar.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("device: close BAR%d: %w", i, err)
		}
		d.bars[i] = nil
	}
	return firstErr
}
