// Package testutil provides shared test helpers: synthetic /proc and /sys
// trees on an in-memory filesystem and a filesystem wrapper whose files can be
// made unreadable after they were opened.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"testing"

	"github.com/spf13/afero"
)

// WriteFile creates path (and its parent directories) on fs with content.
// Rewriting a file that is already open updates what the open handle reads.
func WriteFile(t testing.TB, fs afero.Fs, path, content string) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Mkdir creates a directory tree on fs.
func Mkdir(t testing.TB, fs afero.Fs, path string) {
	t.Helper()
	if err := fs.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

// FlakyFs wraps an afero.Fs so that individual paths can be broken. A broken
// path fails to open and every read through a handle opened on it fails with
// ENODEV, the way a sysfs attribute of an unplugged device behaves.
type FlakyFs struct {
	afero.Fs

	mu     sync.Mutex
	broken map[string]bool
	opens  map[string]int
	live   map[string]int
}

// NewFlakyFs wraps base.
func NewFlakyFs(base afero.Fs) *FlakyFs {
	return &FlakyFs{
		Fs:     base,
		broken: make(map[string]bool),
		opens:  make(map[string]int),
		live:   make(map[string]int),
	}
}

// Break makes path unreadable for both existing and future handles.
func (f *FlakyFs) Break(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broken[filepath.Clean(path)] = true
}

// Heal undoes Break.
func (f *FlakyFs) Heal(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.broken, filepath.Clean(path))
}

// Opens returns how many times path was successfully opened.
func (f *FlakyFs) Opens(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens[filepath.Clean(path)]
}

// Live returns how many handles opened on path have not been closed yet.
func (f *FlakyFs) Live(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live[filepath.Clean(path)]
}

// LivePaths returns every path that still has an open handle.
func (f *FlakyFs) LivePaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var paths []string
	for p, n := range f.live {
		if n > 0 {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	return paths
}

func (f *FlakyFs) isBroken(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.broken[filepath.Clean(path)]
}

func (f *FlakyFs) Open(name string) (afero.File, error) {
	if f.isBroken(name) {
		return nil, &os.PathError{Op: "open", Path: name, Err: syscall.ENOENT}
	}

	file, err := f.Fs.Open(name)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.opens[filepath.Clean(name)]++
	f.live[filepath.Clean(name)]++
	f.mu.Unlock()

	return &flakyFile{File: file, fs: f, path: name}, nil
}

type flakyFile struct {
	afero.File
	fs     *FlakyFs
	path   string
	closed bool
}

func (f *flakyFile) Close() error {
	if !f.closed {
		f.closed = true
		f.fs.mu.Lock()
		f.fs.live[filepath.Clean(f.path)]--
		f.fs.mu.Unlock()
	}

	return f.File.Close()
}

func (f *flakyFile) Read(p []byte) (int, error) {
	if f.fs.isBroken(f.path) {
		return 0, &os.PathError{Op: "read", Path: f.path, Err: syscall.ENODEV}
	}

	return f.File.Read(p)
}
