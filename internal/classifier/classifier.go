// Package classifier discovers media files under a root directory and tags them
// into named buckets by case-insensitive filename substring.
package classifier

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mydehq/imgpack/internal/types"
)

// Options controls traversal and tagging.
type Options struct {
	Patterns  []string
	Recursive bool
	// MaxDepth bounds the walk when Recursive is false: 1 is the root only,
	// N descends N-1 levels. Zero or less means unbounded.
	MaxDepth int

	Exclude      []string // Absolute directories to skip
	ExcludeNames []string // Glob patterns matched against directory base names
}

// Bucket is a named, ordered collection of media files. Order is discovery order.
type Bucket struct {
	Name  string
	Files []types.MediaFile
}

// Len returns the number of files in the bucket.
func (b *Bucket) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Files)
}

// Warning records a directory or file that was skipped during traversal.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// Result is the bucket map produced by Classify.
type Result struct {
	Root     string
	Patterns []string
	Buckets  []*Bucket // "all" first, then patterns in configured order, then "other"
	Warnings []Warning
}

// Bucket returns the bucket called name, or nil.
func (r *Result) Bucket(name string) *Bucket {
	for _, b := range r.Buckets {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// All returns the universal bucket.
func (r *Result) All() *Bucket {
	return r.Bucket(types.BucketAll)
}

// Empty reports whether no media file was discovered anywhere.
func (r *Result) Empty() bool {
	return r.All().Len() == 0
}

// Patterned reports whether the run was configured with at least one pattern.
func (r *Result) Patterned() bool {
	return len(r.Patterns) > 0
}

// NormalizePatterns validates patterns and drops exact duplicates, keeping the first
// occurrence so a file is appended at most once per bucket.
func NormalizePatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return nil, types.ErrInvalidPattern{Pattern: p, Reason: "pattern is empty"}
		}
		if types.IsReservedBucket(strings.TrimSpace(p)) {
			return nil, types.ErrReservedBucket{Name: p}
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

// Classify walks root and returns every media file tagged into buckets.
//
// Unreadable directories are recorded as warnings and skipped; only an invalid
// pattern or a root that is not a directory is an error.
func Classify(root string, opts Options) (*Result, error) {
	patterns, err := NormalizePatterns(opts.Patterns)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	fi, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read root: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", absRoot)
	}

	w := &walker{
		opts:     opts,
		patterns: patterns,
		lower:    make([]string, len(patterns)),
		exclude:  cleanAll(opts.Exclude),
		buckets:  map[string]*Bucket{types.BucketAll: {Name: types.BucketAll}},
		res:      &Result{Root: absRoot, Patterns: patterns},
	}
	for i, p := range patterns {
		w.lower[i] = strings.ToLower(p)
	}

	w.walk(absRoot, 1)
	w.res.Buckets = w.ordered()
	return w.res, nil
}

type walker struct {
	opts     Options
	patterns []string
	lower    []string
	exclude  []string
	buckets  map[string]*Bucket
	res      *Result
}

func (w *walker) walk(dir string, depth int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.warn(dir, err)
		// ReadDir returns whatever it read before the error
		if len(entries) == 0 {
			return
		}
	}

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())

		switch {
		case e.IsDir():
			if w.canDescend(depth) && !w.excluded(path) {
				w.walk(path, depth+1)
			}

		case e.Type()&fs.ModeSymlink != 0:
			// Symlinked directories are not followed, symlinked files are
			if !IsMedia(e.Name()) {
				continue
			}
			fi, err := os.Stat(path)
			if err != nil {
				w.warn(path, err)
				continue
			}
			if fi.Mode().IsRegular() {
				w.visit(path, e.Name(), fi)
			}

		case e.Type().IsRegular():
			if !IsMedia(e.Name()) {
				continue
			}
			fi, err := e.Info()
			if err != nil {
				w.warn(path, err)
				continue
			}
			w.visit(path, e.Name(), fi)
		}
	}
}

func (w *walker) visit(path, name string, fi fs.FileInfo) {
	mimeType := DetectMIME(name)
	kind, ok := KindOf(mimeType)
	if !ok {
		return
	}

	f := types.MediaFile{
		Path:    path,
		Name:    name,
		MIME:    mimeType,
		Kind:    kind,
		ModTime: fi.ModTime(),
		Size:    fi.Size(),
	}

	w.add(types.BucketAll, f)
	if len(w.patterns) == 0 {
		return
	}

	lowerName := strings.ToLower(name)
	matched := false
	for i, p := range w.patterns {
		if strings.Contains(lowerName, w.lower[i]) {
			w.add(p, f)
			matched = true
		}
	}
	if !matched {
		w.add(types.BucketOther, f)
	}
}

func (w *walker) add(name string, f types.MediaFile) {
	b, ok := w.buckets[name]
	if !ok {
		b = &Bucket{Name: name}
		w.buckets[name] = b
	}
	b.Files = append(b.Files, f)
}

func (w *walker) warn(path string, err error) {
	w.res.Warnings = append(w.res.Warnings, Warning{Path: path, Err: err})
}

func (w *walker) canDescend(depth int) bool {
	return w.opts.Recursive || w.opts.MaxDepth <= 0 || depth < w.opts.MaxDepth
}

func (w *walker) excluded(dir string) bool {
	for _, x := range w.exclude {
		if isUnder(dir, x) {
			return true
		}
	}
	base := filepath.Base(dir)
	for _, g := range w.opts.ExcludeNames {
		if ok, _ := filepath.Match(g, base); ok {
			return true
		}
	}
	return false
}

// ordered returns the non-empty buckets with "all" first and "other" last.
func (w *walker) ordered() []*Bucket {
	out := []*Bucket{w.buckets[types.BucketAll]}
	for _, p := range w.patterns {
		if b := w.buckets[p]; b.Len() > 0 {
			out = append(out, b)
		}
	}
	if b := w.buckets[types.BucketOther]; b.Len() > 0 {
		out = append(out, b)
	}
	return out
}

func cleanAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}

func isUnder(path, base string) bool {
	path = filepath.Clean(path)
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(filepath.Separator))
}
