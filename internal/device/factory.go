package device

import (
	"fmt"
	"log/slog"

	"github.com/snalvc/xdma-uio-udrv/internal/barmap"
	"github.com/snalvc/xdma-uio-udrv/internal/sysfsuio"
)

// BarOpener maps a physical BAR window into process memory. The default
// production opener wraps barmap.Open; tests substitute an in-memory fake.
type BarOpener func(physStart uint64, length int) (BarWindow, error)

// Factory discovers and assembles Devices.
type Factory struct {
	// Root is the sysfs UIO class directory to search. Defaults to
	// sysfsuio.DefaultRoot when zero-valued.
	Root string
	// OpenBar maps a BAR window. Defaults to a real /dev/mem mapping via
	// barmap.Open when nil.
	OpenBar BarOpener
}

// NewFactory returns a Factory wired to the real sysfs tree and /dev/mem.
func NewFactory() *Factory {
	return &Factory{Root: sysfsuio.DefaultRoot, OpenBar: openRealBar}
}

func openRealBar(physStart uint64, length int) (BarWindow, error) {
	return barmap.Open(physStart, length)
}

// Open discovers the target xdma_uio instance (or the one matching
// uioIndex, if non-nil), maps every populated BAR, and identifies the
// control BAR. Construction is all-or-nothing: on any failure, every BAR
// mapped so far is closed and no Device is returned.
func (f *Factory) Open(uioIndex *int) (*Device, error) {
	root := f.Root
	if root == "" {
		root = sysfsuio.DefaultRoot
	}
	opener := f.OpenBar
	if opener == nil {
		opener = openRealBar
	}

	instances, err := sysfsuio.Discover(root)
	if err != nil {
		return nil, err
	}

	target, err := sysfsuio.Select(instances, uioIndex)
	if err != nil {
		return nil, err
	}

	maps, err := sysfsuio.ReadMaps(target.Path)
	if err != nil {
		return nil, err
	}

	dev := &Device{UioIndex: target.Index}

	for _, m := range maps {
		bar, err := opener(m.Addr, int(m.Size))
		if err != nil {
			dev.Close()
			return nil, fmt.Errorf("device: map BAR%d: %w", m.Index, err)
		}
		dev.bars[m.Index] = bar
		dev.NumBars++
	}

	controlIndex, err := identifyControlBar(dev.NumBars, dev.bars)
	if err != nil {
		dev.Close()
		return nil, err
	}
	dev.ControlBarIndex = controlIndex

	slog.Debug("device: opened", "uio", dev.UioIndex, "num_bars", dev.NumBars, "control_bar", dev.ControlBarIndex)

	return dev, nil
}
