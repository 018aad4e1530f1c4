package barmap

import "errors"

// ErrMapFailed indicates that the /dev/mem mapping for a BAR window could
// not be established.
var ErrMapFailed = errors.New("barmap: mapping failed")
