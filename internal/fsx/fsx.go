// Package fsx provides atomic file writes and no-overwrite copies.
package fsx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// Replaceable so tests can simulate rename failures.
var renameFunc = os.Rename

// PathConflictError is returned when a destination exists but is not a regular file.
type PathConflictError struct {
	Path string
	Got  string
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("destination %q exists and is a %s", e.Path, e.Got)
}

// WriteFileAtomic writes data to path through a temp file in the same directory,
// replacing any existing file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteAtomic(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteAtomic streams fn's output to path through a temp file in the same directory.
// On any error the temp file is removed and path is left untouched.
func WriteAtomic(path string, perm os.FileMode, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := fn(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := renameFunc(tmpName, path); err != nil {
		return err
	}

	_ = syncDir(dir)
	return nil
}

// CopyFile copies src to dst unless dst already exists. copied is false when an
// existing regular file was left in place. The copy keeps src's permission bits
// and modification time.
func CopyFile(src, dst string) (copied bool, err error) {
	if fi, err := os.Lstat(dst); err == nil {
		if fi.IsDir() {
			return false, &PathConflictError{Path: dst, Got: "directory"}
		}
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}

	in, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return false, err
	}
	if !fi.Mode().IsRegular() {
		return false, fmt.Errorf("%s is not a regular file", src)
	}

	err = WriteAtomic(dst, fi.Mode().Perm(), func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
	if err != nil {
		return false, err
	}

	if err := os.Chtimes(dst, fi.ModTime(), fi.ModTime()); err != nil {
		return true, err
	}
	return true, nil
}

func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
