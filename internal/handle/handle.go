// Package handle keeps read-only handles to kernel counter files open across
// ticks and implements the close/reopen/retry-once recovery policy.
package handle

import (
	"io"

	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/textparse"
	"github.com/spf13/afero"
)

// Handle is a long-lived read handle bound to one canonical path. Counter
// files are re-read from offset zero on every tick.
type Handle struct {
	fs   afero.Fs
	path string
	file afero.File
}

// Open opens path read-only on fs.
func Open(fs afero.Fs, path string) (*Handle, error) {
	h := &Handle{fs: fs, path: path}
	if err := h.open(); err != nil {
		return nil, err
	}

	return h, nil
}

func (h *Handle) open() error {
	f, err := h.fs.Open(h.path)
	if err != nil {
		return errors.New().Wrap(ErrNotFound, err).WithData(h.path)
	}
	h.file = f

	return nil
}

// IsOpen reports whether the handle currently holds an open file.
func (h *Handle) IsOpen() bool {
	return h != nil && h.file != nil
}

// ReadAll rewinds the file and reads it whole into *buf.
func (h *Handle) ReadAll(buf *[]byte) (int, error) {
	errFactory := errors.New()

	if !h.IsOpen() {
		return 0, errFactory.WithData(ErrClosed, h.path)
	}

	if _, err := h.file.Seek(0, io.SeekStart); err != nil {
		return 0, errFactory.Wrap(ErrReadFailed, err).WithData(h.path)
	}

	n, err := textparse.ReadWhole(h.file, buf)
	if err != nil {
		return n, errFactory.Wrap(ErrReadFailed, err).WithData(h.path)
	}

	return n, nil
}

// ReadRetry reads the file whole, recovering from one failure. A read that
// errors or returns no bytes closes the handle, reopens the same path and
// reads once more. If the reopen or the second read fails the handle is left
// closed and an ErrEvict error is returned: the caller should drop the
// device.
func (h *Handle) ReadRetry(buf *[]byte) (int, error) {
	n, err := h.ReadAll(buf)
	if err == nil && n > 0 {
		return n, nil
	}

	h.Close()
	if err := h.open(); err != nil {
		return 0, errors.New().Wrap(ErrEvict, err)
	}

	n, err = h.ReadAll(buf)
	if err == nil && n > 0 {
		return n, nil
	}

	h.Close()
	if err == nil {
		err = errors.New().WithData(ErrReadFailed, h.path).WithMessage("empty read")
	}

	return 0, errors.New().Wrap(ErrEvict, err)
}

// Close releases the file. Closing an already closed handle is a no-op.
func (h *Handle) Close() error {
	if !h.IsOpen() {
		return nil
	}

	err := h.file.Close()
	h.file = nil

	return err
}

// CloseAll closes every non-nil handle, ignoring errors. It is used to unwind
// partially opened devices and on shutdown.
func CloseAll(handles ...*Handle) {
	for _, h := range handles {
		if h != nil {
			h.Close()
		}
	}
}
