// Package fsio reads inputs and writes outputs through an afero filesystem.
// Writes are atomic: content goes to a temporary file next to the target
// which is then renamed over it.
package fsio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// IOError reports a failed file operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// FS wraps an afero filesystem.
type FS struct {
	fs afero.Fs
}

// New returns an FS backed by fsys.
func New(fsys afero.Fs) *FS {
	return &FS{fs: fsys}
}

// OS returns an FS backed by the host filesystem.
func OS() *FS {
	return New(afero.NewOsFs())
}

// ReadFile returns the contents of path.
func (f *FS) ReadFile(path string) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// IsDir reports whether path is an existing directory. A missing path is
// not an error.
func (f *FS) IsDir(path string) (bool, error) {
	info, err := f.fs.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &IOError{Op: "stat", Path: path, Err: err}
	}
	return info.IsDir(), nil
}

// MkdirAll creates dir and its parents.
func (f *FS) MkdirAll(dir string) error {
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "create directory", Path: dir, Err: err}
	}
	return nil
}

// WriteFile replaces path with data atomically. An existing file keeps its
// permissions; new files are created 0644.
func (f *FS) WriteFile(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := f.fs.Stat(path); err == nil {
		if info.IsDir() {
			return &IOError{Op: "write", Path: path, Err: errors.New("is a directory")}
		}
		mode = info.Mode().Perm()
	} else if !errors.Is(err, os.ErrNotExist) {
		return &IOError{Op: "stat", Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(f.fs, dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if err := writeAndClose(tmp, data); err != nil {
		_ = f.fs.Remove(tmpName)
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.fs.Chmod(tmpName, mode); err != nil {
		_ = f.fs.Remove(tmpName)
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.fs.Rename(tmpName, path); err != nil {
		_ = f.fs.Remove(tmpName)
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func writeAndClose(file afero.File, data []byte) error {
	if _, err := file.Write(data); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
