package classifier

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"github.com/mydehq/imgpack/internal/types"
)

// DetectMIME returns the MIME type declared for name's extension, or "" when the
// extension is unknown. Contents are never inspected.
func DetectMIME(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return ""
	}

	if t := filetype.GetType(ext); t != filetype.Unknown && t.MIME.Value != "" {
		return t.MIME.Value
	}

	// Fall back to the stdlib table (svg, jpeg, avif and whatever the system mime.types adds)
	m := mime.TypeByExtension("." + ext)
	if m == "" {
		return ""
	}
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	return strings.TrimSpace(m)
}

// KindOf maps a MIME type to its media kind. ok is false for non-media types.
func KindOf(mimeType string) (kind types.Kind, ok bool) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return types.KindImage, true
	case strings.HasPrefix(mimeType, "video/"):
		return types.KindVideo, true
	case strings.HasPrefix(mimeType, "audio/"):
		return types.KindAudio, true
	default:
		return "", false
	}
}

// IsMedia reports whether name has an image, video or audio extension.
func IsMedia(name string) bool {
	_, ok := KindOf(DetectMIME(name))
	return ok
}
