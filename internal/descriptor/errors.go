package descriptor

import "errors"

// ErrSizeOutOfRange indicates a requested transfer size exceeds the buffer
// this descriptor ring can address.
var ErrSizeOutOfRange = errors.New("descriptor: request size out of range")
