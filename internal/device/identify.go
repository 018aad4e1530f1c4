package device

import (
	"encoding/binary"
	"fmt"
)

// controlBarRegisterLen is the fixed length of the control-register BAR
// (64 KiB), used both as a size class and a disambiguation signal.
const controlBarRegisterLen = 65536

// configIdentifierOffset is the byte offset of the CONFIG target's
// identifier word, read directly off the raw BAR window during
// identification (before a RegFile exists for it).
const configIdentifierOffset = 0x3000

// configIdentifierMask selects the masked config-identifier bits checked
// against the expected core signature.
const configIdentifierMask = 0xFFFF0000

// expectedConfigIdentifier is the masked config identifier the XDMA core
// reports.
const expectedConfigIdentifier = 0x1FC30000

// identifyControlBar applies the heuristic from the original driver: with
// exactly one populated BAR it is BAR 0; with three it is BAR 1; with two,
// the 64 KiB one is checked against the expected config identifier. The
// original's always-failing "both are 64 KiB and bar0_len==XDMA_REGISTER_LEN"
// branch is reproduced by its effect: ErrAmbiguousControlBar whenever both
// BARs are 64 KiB.
func identifyControlBar(numBars int, bars [maxBars]BarWindow) (int, error) {
	switch numBars {
	case 1:
		return 0, nil
	case 3:
		return 1, nil
	case 2:
		return identifyTwoBarDevice(bars[0], bars[1])
	default:
		return 0, fmt.Errorf("%w: unsupported BAR count %d", ErrControlBarNotFound, numBars)
	}
}

func identifyTwoBarDevice(bar0, bar1 BarWindow) (int, error) {
	bar0Len := bar0.Len()
	bar1Len := bar1.Len()

	if bar0Len == controlBarRegisterLen && bar1Len == controlBarRegisterLen {
		// Reproduces the original driver's dead branch: once both BARs are
		// known to be 64 KiB, the heuristic is underdetermined regardless
		// of config identifier contents.
		return 0, ErrAmbiguousControlBar
	}

	switch {
	case bar0Len == controlBarRegisterLen:
		if configIdentifier(bar0) == expectedConfigIdentifier {
			return 0, nil
		}
		return 0, ErrConfigIdentifierMismatch
	case bar1Len == controlBarRegisterLen:
		if configIdentifier(bar1) == expectedConfigIdentifier {
			return 1, nil
		}
		return 0, ErrConfigIdentifierMismatch
	default:
		return 0, ErrControlBarNotFound
	}
}

func configIdentifier(bar BarWindow) uint32 {
	b := bar.Bytes()
	raw := binary.LittleEndian.Uint32(b[configIdentifierOffset : configIdentifierOffset+4])
	return raw & configIdentifierMask
}
