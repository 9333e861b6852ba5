package manifest

import (
	"regexp"
	"strconv"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}._ +-]+`)

// SanitizeDir turns a bucket name into a single safe directory name.
func SanitizeDir(name string) string {
	s := unsafeChars.ReplaceAllString(name, "-")
	s = strings.TrimLeft(strings.TrimSpace(s), ".")
	s = strings.TrimSpace(s)
	if s == "" {
		return "bucket"
	}
	return s
}

// dirNames hands out unique directory names. Comparison ignores case so two
// buckets never share a directory on case-insensitive filesystems.
type dirNames struct {
	used map[string]bool
}

func newDirNames() *dirNames {
	return &dirNames{used: make(map[string]bool)}
}

func (d *dirNames) take(bucket string) string {
	base := SanitizeDir(bucket)
	name := base
	for i := 2; d.used[strings.ToLower(name)]; i++ {
		name = base + "-" + strconv.Itoa(i)
	}
	d.used[strings.ToLower(name)] = true
	return name
}
