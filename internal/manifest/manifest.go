// Package manifest materializes classified buckets into the gallery's media tree
// and computes the display order, counts and summary the rendered page consumes.
package manifest

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/mydehq/imgpack/internal/classifier"
	"github.com/mydehq/imgpack/internal/fsx"
	"github.com/mydehq/imgpack/internal/types"
)

var copyFile = fsx.CopyFile

// MediaDir is the directory under the gallery root that holds copied media.
const MediaDir = "media"

// Options controls manifest construction.
type Options struct {
	EXIF bool // read capture dates from JPEG/TIFF files
}

// Entry is one file as displayed in one bucket.
type Entry struct {
	Name   string // Display name, the source basename
	Dir    string // Bucket directory under media/, "" for a flat gallery
	Href   string // URL relative to the gallery root
	Dest   string // Absolute path of the copy
	Source types.MediaFile
	Taken  time.Time // EXIF capture date, zero when unknown

	Shadowed bool // another file with the same name was materialized first
	Missing  bool // the copy failed
}

// Bucket is a display-ready bucket.
type Bucket struct {
	Name    string
	Dir     string
	Entries []Entry // sorted by name, then source path
	Count   int     // distinct source files
}

// Summary aggregates the unique materialized files.
type Summary struct {
	Unique     int
	Extensions map[string]int // lowercase extension without dot -> count
	Bytes      int64
	Copied     int
	Skipped    int // destination already existed
}

// Manifest is the complete description of a gallery.
type Manifest struct {
	MediaRoot string
	Patterned bool
	Buckets   []*Bucket // "all" first, then the classified order
	Summary   Summary
	Warnings  []classifier.Warning
}

// Bucket returns the bucket called name, or nil.
func (m *Manifest) Bucket(name string) *Bucket {
	for _, b := range m.Buckets {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// Build copies every file of res into mediaRoot and returns the manifest.
//
// Copies are skipped when the destination exists, so building twice into the same
// mediaRoot copies nothing the second time. Per-file failures become warnings.
func Build(res *classifier.Result, mediaRoot string, opts Options) (*Manifest, error) {
	if err := os.MkdirAll(mediaRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	b := &builder{
		opts:  opts,
		root:  mediaRoot,
		first: make(map[string]Entry),
		seen:  make(map[string]bool),
		taken: make(map[string]time.Time),
		m: &Manifest{
			MediaRoot: mediaRoot,
			Patterned: res.Patterned(),
			Summary:   Summary{Extensions: make(map[string]int)},
		},
	}

	all := res.All()
	if !res.Patterned() {
		b.m.Buckets = append(b.m.Buckets, b.materialize(all, ""))
		return b.m, nil
	}

	dirs := newDirNames()
	var materialized []*Bucket
	for _, cb := range res.Buckets {
		if cb.Name == types.BucketAll {
			continue
		}
		materialized = append(materialized, b.materialize(cb, dirs.take(cb.Name)))
	}

	b.m.Buckets = append(b.m.Buckets, b.allView(all))
	b.m.Buckets = append(b.m.Buckets, materialized...)
	return b.m, nil
}

type builder struct {
	opts  Options
	root  string
	first map[string]Entry     // source path -> first materialized entry
	seen  map[string]bool      // source paths already in the summary
	taken map[string]time.Time // source path -> EXIF date
	m     *Manifest
}

func (b *builder) materialize(cb *classifier.Bucket, dir string) *Bucket {
	out := &Bucket{Name: cb.Name, Dir: dir}

	byName := make(map[string]string, cb.Len())
	for _, f := range cb.Files {
		e := Entry{
			Name:   f.Name,
			Dir:    dir,
			Href:   href(dir, f.Name),
			Dest:   filepath.Join(b.root, dir, f.Name),
			Source: f,
		}

		b.count(f)

		if winner, ok := byName[f.Name]; ok {
			e.Shadowed = true
			b.warn(f.Path, fmt.Errorf("name already used by %s in %q", winner, cb.Name))
			out.Entries = append(out.Entries, e)
			continue
		}
		byName[f.Name] = f.Path

		copied, err := copyFile(f.Path, e.Dest)
		switch {
		case copied:
			// The data is in place even if preserving the mtime failed
			b.m.Summary.Copied++
			if err != nil {
				b.warn(f.Path, fmt.Errorf("copied with errors: %w", err))
			}
		case err != nil:
			e.Missing = true
			b.warn(f.Path, fmt.Errorf("copy failed: %w", err))
		default:
			b.m.Summary.Skipped++
		}

		e.Taken = b.captureTime(f)
		if _, seen := b.first[f.Path]; !seen {
			b.first[f.Path] = e
		}
		out.Entries = append(out.Entries, e)
	}

	out.Count = distinct(out.Entries)
	sortEntries(out.Entries)
	return out
}

// allView lists every discovered file once, at its first materialized location.
func (b *builder) allView(all *classifier.Bucket) *Bucket {
	out := &Bucket{Name: types.BucketAll}
	for _, f := range all.Files {
		e, ok := b.first[f.Path]
		if !ok {
			// Shadowed in every bucket it belongs to
			e = Entry{Name: f.Name, Source: f, Shadowed: true}
		}
		out.Entries = append(out.Entries, e)
	}
	out.Count = distinct(out.Entries)
	sortEntries(out.Entries)
	return out
}

func (b *builder) count(f types.MediaFile) {
	if b.seen[f.Path] {
		return
	}
	b.seen[f.Path] = true

	s := &b.m.Summary
	s.Unique++
	s.Bytes += f.Size
	ext := f.Ext()
	if ext == "" {
		ext = "(none)"
	}
	s.Extensions[ext]++
}

func (b *builder) warn(path string, err error) {
	b.m.Warnings = append(b.m.Warnings, classifier.Warning{Path: path, Err: err})
}

func distinct(entries []Entry) int {
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.Source.Path] = true
	}
	return len(seen)
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Source.Path < entries[j].Source.Path
	})
}

func href(dir, name string) string {
	parts := []string{MediaDir}
	if dir != "" {
		parts = append(parts, url.PathEscape(dir))
	}
	parts = append(parts, url.PathEscape(name))
	return path.Join(parts...)
}
