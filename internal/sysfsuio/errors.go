package sysfsuio

import "errors"

var (
	// ErrNoDevice indicates that no xdma_uio instance was found under the
	// sysfs UIO class directory.
	ErrNoDevice = errors.New("sysfsuio: no device")
	// ErrDeviceNotFound indicates a caller-specified UIO index was not
	// among the discovered xdma_uio instances.
	ErrDeviceNotFound = errors.New("sysfsuio: specified uio not found")
	// ErrMissingAttribute indicates a maps/mapN directory was missing one
	// of addr, offset, or size.
	ErrMissingAttribute = errors.New("sysfsuio: missing map attribute")
	// ErrInvalidMapIndex indicates a maps/mapN directory named an index
	// outside [0, MaxBars).
	ErrInvalidMapIndex = errors.New("sysfsuio: invalid map index")
)
