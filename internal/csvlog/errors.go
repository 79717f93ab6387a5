package csvlog

import "codeberg.org/mutker/sysmon/internal/errors"

const (
	ErrInvalidStat = errors.ErrorCode("csvlog_invalid_stat")
	ErrNoStats     = errors.ErrorCode("csvlog_no_stats")
	ErrCreateFile  = errors.ErrInitCSVLog
	ErrWrite       = errors.ErrorCode("csvlog_write_failed")
)
