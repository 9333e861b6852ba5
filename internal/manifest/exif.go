package manifest

import (
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/mydehq/imgpack/internal/types"
)

func (b *builder) captureTime(f types.MediaFile) time.Time {
	if !b.opts.EXIF || (f.MIME != "image/jpeg" && f.MIME != "image/tiff") {
		return time.Time{}
	}
	if t, ok := b.taken[f.Path]; ok {
		return t
	}
	t, err := exifDate(f.Path)
	if err != nil {
		t = time.Time{}
	}
	b.taken[f.Path] = t
	return t
}

// exifDate returns the capture date recorded in the file's EXIF block.
func exifDate(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, err
	}
	return x.DateTime()
}
