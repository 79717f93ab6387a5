// Package csvlog appends selected per-tick figures to a CSV file, one row per
// tick under a header naming each column.
package csvlog

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"sync"

	"codeberg.org/mutker/sysmon/internal/errors"
	"codeberg.org/mutker/sysmon/internal/sampler"
	"github.com/spf13/afero"
)

type Logger struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
	stats  []Stat
	row    []string
}

// New writes the header for stats to w and returns a Logger appending rows
// to it. The caller keeps ownership of w.
func New(w io.Writer, stats []Stat) (*Logger, error) {
	errFactory := errors.New()

	if len(stats) == 0 {
		return nil, errFactory.New(ErrNoStats)
	}

	l := &Logger{
		w:     csv.NewWriter(w),
		stats: stats,
		row:   make([]string, len(stats)),
	}
	for i, stat := range stats {
		l.row[i] = stat.Header()
	}
	if err := l.flush(); err != nil {
		return nil, err
	}

	return l, nil
}

// Create truncates or creates path on fs and starts a log there.
func Create(fs afero.Fs, path string, stats []Stat) (*Logger, error) {
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.New().Wrap(ErrCreateFile, err).WithData(path)
	}

	l, err := New(f, stats)
	if err != nil {
		f.Close()
		return nil, err
	}
	l.closer = f

	return l, nil
}

// Record appends one row for snap.
func (l *Logger) Record(ctx context.Context, snap *sampler.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i, stat := range l.stats {
		l.row[i] = stat.Value(snap)
	}

	return l.flush()
}

func (l *Logger) flush() error {
	if err := l.w.Write(l.row); err != nil {
		return errors.New().Wrap(ErrWrite, err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return errors.New().Wrap(ErrWrite, err)
	}

	return nil
}

// Close closes the underlying file when the Logger owns one.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.w.Flush()
	if l.closer == nil {
		return nil
	}

	err := l.closer.Close()
	l.closer = nil
	if err != nil {
		return errors.New().Wrap(ErrWrite, err)
	}

	return nil
}
