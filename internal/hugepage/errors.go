package hugepage

import "errors"

var (
	// ErrAllocFailed indicates the anonymous huge-page mapping could not be
	// established.
	ErrAllocFailed = errors.New("hugepage: mapping failed")
	// ErrPhysAddrUnavailable indicates /proc/self/pagemap reported a zero
	// page frame number, which on an unprivileged process means the caller
	// lacks CAP_SYS_ADMIN.
	ErrPhysAddrUnavailable = errors.New("hugepage: cannot read physical address")
)
