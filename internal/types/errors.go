package types

import (
	"errors"
	"fmt"
)

// ErrNoMedia is returned when a run discovers no media files at all.
var ErrNoMedia = errors.New("no media files found")

// ErrInvalidPattern is returned for a bucket pattern that cannot be used.
type ErrInvalidPattern struct {
	Pattern string
	Reason  string
}

func (e ErrInvalidPattern) Error() string {
	return fmt.Sprintf("invalid tab pattern %q: %s", e.Pattern, e.Reason)
}

// ErrReservedBucket is returned when a pattern would shadow the "all" or "other" bucket.
type ErrReservedBucket struct {
	Name string
}

func (e ErrReservedBucket) Error() string {
	return fmt.Sprintf("tab name %q is reserved", e.Name)
}

// ErrInvalidSelection is returned when a selective export payload cannot be parsed.
// It is a client error: nothing on disk has been touched.
type ErrInvalidSelection struct {
	Err error
}

func (e ErrInvalidSelection) Error() string {
	if e.Err == nil {
		return "invalid selection"
	}
	return fmt.Sprintf("invalid selection: %v", e.Err)
}

func (e ErrInvalidSelection) Unwrap() error { return e.Err }

// ErrArchive wraps an I/O failure while building an archive.
type ErrArchive struct {
	Path string
	Err  error
}

func (e ErrArchive) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("archive failed: %v", e.Err)
	}
	return fmt.Sprintf("archive %s failed: %v", e.Path, e.Err)
}

func (e ErrArchive) Unwrap() error { return e.Err }

// ErrConfig is returned when the configuration file cannot be read or parsed.
type ErrConfig struct {
	Path string
	Err  error
}

func (e ErrConfig) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e ErrConfig) Unwrap() error { return e.Err }

// ErrDownload is returned when a remote asset cannot be fetched.
type ErrDownload struct {
	URL        string
	StatusCode int
	Message    string
}

func (e ErrDownload) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s failed (%d): %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("download %s failed: %s", e.URL, e.Message)
}
