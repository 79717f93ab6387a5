package handle

import "codeberg.org/mutker/sysmon/internal/errors"

const (
	ErrNotFound   = errors.ErrResourceNotFound
	ErrReadFailed = errors.ErrorCode("handle_read_failed")
	ErrEvict      = errors.ErrorCode("handle_evict")
	ErrClosed     = errors.ErrorCode("handle_closed")
)
