// Package pid guards against two monitors running at once through a PID
// file.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/sysmon/internal/errors"
)

const (
	pidFile = "sysmon.pid"
)

// DefaultPath returns the PID file location under the temp directory.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write records the current process ID at path. It fails with
// ErrAlreadyRunning when path names a live process; a stale or unreadable
// file is replaced.
func Write(path string) error {
	errFactory := errors.New()

	if running, pid := isRunning(path); running {
		return errFactory.WithData(errors.ErrAlreadyRunning, pid)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrPIDFile, err)
	}

	return nil
}

func isRunning(path string) (bool, int) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return false, 0
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}

	return process.Signal(syscall.Signal(0)) == nil, pid
}

// Remove removes the PID file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrPIDFile, err)
	}

	return nil
}
