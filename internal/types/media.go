// Package types holds the domain types shared across imgpack packages.
package types

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind is the major media type of a file, derived from its MIME type.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Reserved bucket names
const (
	BucketAll   = "all"
	BucketOther = "other"
)

// MediaFile is a media file discovered under the gallery root. It is never mutated after discovery.
type MediaFile struct {
	Path    string    // Absolute source path, the file's identity
	Name    string    // Basename, used for matching and display
	MIME    string    // e.g. "image/png"
	Kind    Kind      // image, video or audio
	ModTime time.Time // Source modification time
	Size    int64     // Size in bytes
}

// Ext returns the lowercase extension without the leading dot.
func (f MediaFile) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), ".")
}

// IsReservedBucket reports whether name collides with a sentinel bucket.
func IsReservedBucket(name string) bool {
	return strings.EqualFold(name, BucketAll) || strings.EqualFold(name, BucketOther)
}
