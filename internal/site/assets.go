package site

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mydehq/imgpack/internal/fsx"
	"github.com/mydehq/imgpack/internal/types"
)

const (
	DefaultPhotoSwipeVersion = "5.4.4"
	DefaultAssetBaseURL      = "https://cdnjs.cloudflare.com/ajax/libs/photoswipe"
)

// Paths under <base>/<version>/
const (
	cssPath      = "photoswipe.min.css"
	jsPath       = "umd/photoswipe.umd.min.js"
	lightboxPath = "umd/photoswipe-lightbox.umd.min.js"
)

// maxAssetSize bounds a single downloaded asset.
const maxAssetSize = 4 << 20

// Base wait before retrying a 429. Overridden in tests.
var retryWait = 2 * time.Second

// Assets holds the PhotoSwipe files inlined into the page.
type Assets struct {
	CSS        string
	JS         string
	LightboxJS string
}

// Complete reports whether every file is present.
func (a Assets) Complete() bool {
	return a.CSS != "" && a.JS != "" && a.LightboxJS != ""
}

// FetchOptions controls where assets come from.
type FetchOptions struct {
	Version  string
	BaseURL  string
	CacheDir string // empty disables the disk cache
	Offline  bool
	Client   *http.Client
}

// FetchAssets returns the PhotoSwipe files, from the cache when present, else
// downloaded and cached. Any failure returns empty Assets and the error; callers
// render a plain gallery.
func FetchAssets(ctx context.Context, opts FetchOptions) (Assets, error) {
	if opts.Offline {
		return Assets{}, errors.New("offline mode")
	}
	if opts.Version == "" {
		opts.Version = DefaultPhotoSwipeVersion
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAssetBaseURL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}

	paths := []string{cssPath, jsPath, lightboxPath}
	if a, ok := readCache(opts.CacheDir, opts.Version, paths); ok {
		return a, nil
	}

	files := make([]string, len(paths))

	for i, p := range paths {
		url := fmt.Sprintf("%s/%s/%s", opts.BaseURL, opts.Version, p)
		body, err := download(ctx, opts.Client, url)
		if err != nil {
			return Assets{}, err
		}
		files[i] = body
	}

	if opts.CacheDir != "" {
		dir := filepath.Join(opts.CacheDir, opts.Version)
		for i, p := range paths {
			// Cache write failures are ignored
			_ = fsx.WriteFileAtomic(filepath.Join(dir, filepath.FromSlash(p)), []byte(files[i]), 0o644)
		}
	}

	return Assets{CSS: files[0], JS: files[1], LightboxJS: files[2]}, nil
}

// DefaultCacheDir returns the per-user cache directory for downloaded assets.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "imgpack", "photoswipe")
}

func readCache(dir, version string, paths []string) (Assets, bool) {
	if dir == "" {
		return Assets{}, false
	}
	files := make([]string, len(paths))
	for i, p := range paths {
		b, err := os.ReadFile(filepath.Join(dir, version, filepath.FromSlash(p)))
		if err != nil || len(b) == 0 {
			return Assets{}, false
		}
		files[i] = string(b)
	}
	return Assets{CSS: files[0], JS: files[1], LightboxJS: files[2]}, true
}

func download(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	// Some CDNs reject requests without a user agent
	req.Header.Set("User-Agent", "imgpack")

	resp, err := DoWithRetry(ctx, client, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", types.ErrDownload{URL: url, StatusCode: resp.StatusCode, Message: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize))
	if err != nil {
		return "", types.ErrDownload{URL: url, Message: err.Error()}
	}
	return string(body), nil
}

// DoWithRetry executes an HTTP request with exponential backoff for 429 responses.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	const maxRetries = 3
	for i := 0; i <= maxRetries; i++ {
		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}
		_ = resp.Body.Close()
		if i == maxRetries {
			return nil, types.ErrDownload{
				URL:        req.URL.String(),
				StatusCode: http.StatusTooManyRequests,
				Message:    "rate limit exceeded after retries",
			}
		}

		// Default wait, or respect Retry-After
		wait := retryWait
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				wait = time.Duration(seconds) * time.Second
			}
		}

		// Exponential backoff: 2s, 4s, 8s...
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait * time.Duration(1<<i)):
		}
	}
	return nil, fmt.Errorf("request failed after retries")
}
