package device

import "errors"

var (
	// ErrAmbiguousControlBar indicates two BARs are both 64 KiB, so the
	// control-BAR heuristic cannot distinguish them.
	ErrAmbiguousControlBar = errors.New("device: cannot distinguish control BAR")
	// ErrConfigIdentifierMismatch indicates the single 64 KiB candidate BAR's
	// config identifier did not match the expected masked value.
	ErrConfigIdentifierMismatch = errors.New("device: config identifier mismatched")
	// ErrControlBarNotFound indicates neither BAR in a 2-BAR device is 64
	// KiB, so no control-BAR candidate exists.
	ErrControlBarNotFound = errors.New("device: failed to identify control BAR")
)
