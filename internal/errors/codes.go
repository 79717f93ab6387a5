package errors

const (
	// Configuration
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrParseFlags      ErrorCode = "parse_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Logging
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"
	ErrOpenLogFile     ErrorCode = "open_log_file_failed"

	// Process lifecycle
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"
	ErrPIDFile        ErrorCode = "pid_file_failed"

	// Counter files
	ErrResourceNotFound ErrorCode = "resource_not_found"

	// Recorders and front ends
	ErrRecordFailed ErrorCode = "record_failed"
	ErrInitCSVLog   ErrorCode = "init_csv_log_failed"
	ErrRunUI        ErrorCode = "run_ui_failed"
	ErrTimeout      ErrorCode = "operation_timeout"

	// Metrics history
	ErrInitMetrics    ErrorCode = "init_metrics_failed"
	ErrCollectMetrics ErrorCode = "collect_metrics_failed"
	ErrCloseMetrics   ErrorCode = "close_metrics_failed"
)

var errorMessages = map[ErrorCode]string{
	ErrInvalidConfig:    "Invalid configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrParseFlags:       "Failed to parse flags",
	ErrReadConfig:       "Failed to read config file",
	ErrInvalidInterval:  "Invalid sampling interval",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrOpenLogFile:      "Failed to open log file",
	ErrShutdownFailed:   "Shutdown failed",
	ErrAlreadyRunning:   "Another instance is already running",
	ErrPIDFile:          "Failed to update PID file",
	ErrResourceNotFound: "Counter file not found",
	ErrRecordFailed:     "Failed to record sample",
	ErrInitCSVLog:       "Failed to initialize CSV log",
	ErrRunUI:            "Failed to run terminal UI",
	ErrTimeout:          "Operation timed out",
	ErrInitMetrics:      "Failed to initialize metrics",
	ErrCollectMetrics:   "Failed to collect metrics data",
	ErrCloseMetrics:     "Failed to close metrics connection",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
