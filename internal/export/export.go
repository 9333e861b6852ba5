// Package export packages gallery files into ZIP archives, either the whole
// gallery tree or a client-selected subset of media files.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/mydehq/imgpack/internal/fsx"
	"github.com/mydehq/imgpack/internal/types"
)

// SelectionFilename is the attachment name of a selective export.
const SelectionFilename = "selected_media.zip"

// Selector names one file chosen in the gallery page.
type Selector struct {
	Name string `json:"name"`
	Dir  string `json:"dir,omitempty"` // bucket directory under the media root
}

// ParseSelection decodes the JSON list carried by the "files" form field.
func ParseSelection(raw string) ([]Selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, types.ErrInvalidSelection{Err: errors.New("files field is empty")}
	}
	if raw[0] != '[' {
		return nil, types.ErrInvalidSelection{Err: errors.New("files must be a JSON list")}
	}

	var items []*Selector
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, types.ErrInvalidSelection{Err: err}
	}
	sel := make([]Selector, 0, len(items))
	for i, it := range items {
		if it == nil || it.Name == "" {
			return nil, types.ErrInvalidSelection{Err: fmt.Errorf("entry %d has no name", i)}
		}
		sel = append(sel, *it)
	}
	return sel, nil
}

// ArchiveAll writes every regular file under galleryRoot into a sibling
// "<galleryRoot>.zip" and returns its path. No archive is left behind on error.
func ArchiveAll(galleryRoot string) (string, error) {
	root, err := filepath.Abs(galleryRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve gallery: %w", err)
	}
	fi, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("failed to read gallery: %w", err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("gallery %s is not a directory", root)
	}

	target := root + ".zip"
	err = fsx.WriteAtomic(target, 0o644, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			return addFile(zw, path, filepath.ToSlash(rel))
		})
		if err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	})
	if err != nil {
		return "", types.ErrArchive{Path: target, Err: err}
	}
	return target, nil
}

// ArchiveSelection builds an archive of the selected files found under mediaRoot.
// Selectors that do not name an existing file are skipped. Each file is stored
// under its bare name and added at most once.
//
// The archive is assembled in a private temp file that is always removed.
func ArchiveSelection(mediaRoot string, sel []Selector) ([]byte, error) {
	tmp, err := os.CreateTemp("", "imgpack-selection-*.zip")
	if err != nil {
		return nil, types.ErrArchive{Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	zw := zip.NewWriter(tmp)
	added := make(map[string]bool, len(sel))
	for _, s := range sel {
		if added[s.Name] {
			continue
		}
		path, ok := Resolve(mediaRoot, s)
		if !ok {
			continue
		}
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if err := addFile(zw, path, s.Name); err != nil {
			zw.Close()
			return nil, types.ErrArchive{Path: path, Err: err}
		}
		added[s.Name] = true
	}

	if err := zw.Close(); err != nil {
		return nil, types.ErrArchive{Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, types.ErrArchive{Err: err}
	}

	data, err := os.ReadFile(tmpName)
	if err != nil {
		return nil, types.ErrArchive{Err: err}
	}
	return data, nil
}

// Resolve maps a selector to a path under mediaRoot. ok is false for names that
// could escape a single directory level.
func Resolve(mediaRoot string, s Selector) (path string, ok bool) {
	if !safeComponent(s.Name) {
		return "", false
	}
	if s.Dir == "" {
		return filepath.Join(mediaRoot, s.Name), true
	}
	if !safeComponent(s.Dir) {
		return "", false
	}
	return filepath.Join(mediaRoot, s.Dir, s.Name), true
}

func safeComponent(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`+"\x00") {
		return false
	}
	return filepath.Base(name) == name
}

var openFile = func(name string) (fs.File, error) { return os.Open(name) }

func addFile(zw *zip.Writer, path, name string) error {
	f, err := openFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(fi)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
