package site

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mydehq/imgpack/internal/manifest"
	"github.com/mydehq/imgpack/internal/types"
)

func entry(name, dir string, kind types.Kind, mime string) manifest.Entry {
	href := "media/" + name
	if dir != "" {
		href = "media/" + dir + "/" + name
	}
	return manifest.Entry{
		Name:   name,
		Dir:    dir,
		Href:   href,
		Source: types.MediaFile{Name: name, Kind: kind, MIME: mime, Path: "/src/" + name},
	}
}

func sampleManifest() *manifest.Manifest {
	x := entry("x_v1.png", "v1", types.KindImage, "image/png")
	y := entry("y_v2.png", "other", types.KindImage, "image/png")
	z := entry("z.mp4", "mp4", types.KindVideo, "video/mp4")
	return &manifest.Manifest{
		Patterned: true,
		Buckets: []*manifest.Bucket{
			{Name: "all", Entries: []manifest.Entry{x, y, z}, Count: 3},
			{Name: "v1", Dir: "v1", Entries: []manifest.Entry{x}, Count: 1},
			{Name: "mp4", Dir: "mp4", Entries: []manifest.Entry{z}, Count: 1},
			{Name: "other", Dir: "other", Entries: []manifest.Entry{y}, Count: 1},
		},
	}
}

func render(t *testing.T, m *manifest.Manifest, a Assets) (*goquery.Document, string) {
	t.Helper()
	var buf bytes.Buffer
	if err := Render(&buf, m, a); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	html := buf.String()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("goquery: %v", err)
	}
	return doc, html
}

func TestRender_TabsAndCounts(t *testing.T) {
	doc, _ := render(t, sampleManifest(), Assets{})

	var labels []string
	doc.Find(".tabs .tab").Each(func(_ int, s *goquery.Selection) {
		labels = append(labels, strings.TrimSpace(s.Text()))
	})
	want := []string{"all (3)", "v1 (1)", "mp4 (1)", "other (1)"}
	if len(labels) != len(want) {
		t.Fatalf("tabs = %v; want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("tab[%d] = %q; want %q", i, labels[i], want[i])
		}
	}

	if n := doc.Find(".gallery-container").Length(); n != 4 {
		t.Errorf("gallery containers = %d; want 4", n)
	}
	if n := doc.Find(".gallery-container.active").Length(); n != 1 {
		t.Errorf("active containers = %d; want 1", n)
	}
	if id, _ := doc.Find(".gallery-container.active").Attr("id"); id != "tab-0-gallery" {
		t.Errorf("active container = %q; want tab-0-gallery", id)
	}
	if n := doc.Find("#tab-0-grid .item").Length(); n != 3 {
		t.Errorf("all grid items = %d; want 3", n)
	}
}

func TestRender_MediaElements(t *testing.T) {
	doc, _ := render(t, sampleManifest(), Assets{})

	img := doc.Find("#tab-1-grid .item img")
	if src, _ := img.Attr("src"); src != "media/v1/x_v1.png" {
		t.Errorf("img src = %q; want media/v1/x_v1.png", src)
	}
	if dir, _ := doc.Find("#tab-1-grid .item").Attr("data-dir"); dir != "v1" {
		t.Errorf("data-dir = %q; want v1", dir)
	}

	video := doc.Find("#tab-2-grid .item video source")
	if typ, _ := video.Attr("type"); typ != "video/mp4" {
		t.Errorf("video type = %q; want video/mp4", typ)
	}
	if badge := doc.Find("#tab-2-grid .media-type").Text(); badge != "VIDEO" {
		t.Errorf("badge = %q; want VIDEO", badge)
	}
}

func TestRender_EscapesBucketNames(t *testing.T) {
	m := &manifest.Manifest{Buckets: []*manifest.Bucket{
		{Name: "all", Count: 1, Entries: []manifest.Entry{entry("a.png", "", types.KindImage, "image/png")}},
		{Name: `<script>alert("x")</script>`, Count: 1, Entries: []manifest.Entry{entry("a.png", "script", types.KindImage, "image/png")}},
	}}
	doc, html := render(t, m, Assets{})

	if strings.Contains(html, `<script>alert("x")</script>`) {
		t.Error("bucket name rendered unescaped")
	}
	if got := strings.TrimSpace(doc.Find(".tabs .tab").Eq(1).Text()); got != `<script>alert("x")</script> (1)` {
		t.Errorf("tab text = %q", got)
	}
}

func TestRender_SkipsShadowedAndShowsTaken(t *testing.T) {
	a := entry("a.jpg", "", types.KindImage, "image/jpeg")
	a.Taken = time.Date(2023, 7, 1, 9, 30, 0, 0, time.UTC)
	shadow := entry("a.jpg", "", types.KindImage, "image/jpeg")
	shadow.Shadowed = true

	doc, _ := render(t, &manifest.Manifest{Buckets: []*manifest.Bucket{
		{Name: "all", Count: 2, Entries: []manifest.Entry{a, shadow}},
	}}, Assets{})

	if n := doc.Find(".item").Length(); n != 1 {
		t.Errorf("items = %d; want 1", n)
	}
	if tip := doc.Find(".filename-tooltip").Text(); !strings.Contains(tip, "2023-07-01 09:30") {
		t.Errorf("tooltip = %q; want capture date", tip)
	}
}

func TestRender_SkipsMissingEntries(t *testing.T) {
	ok := entry("ok.png", "v1", types.KindImage, "image/png")
	gone := entry("gone.png", "v1", types.KindImage, "image/png")
	gone.Missing = true

	doc, html := render(t, &manifest.Manifest{Buckets: []*manifest.Bucket{
		{Name: "all", Count: 2, Entries: []manifest.Entry{ok, gone}},
		{Name: "v1", Dir: "v1", Count: 2, Entries: []manifest.Entry{ok, gone}},
	}}, Assets{})

	if n := doc.Find(".item").Length(); n != 2 {
		t.Errorf("items = %d; want 2", n)
	}
	if strings.Contains(html, "media/v1/gone.png") {
		t.Error("page links to a file that was never copied")
	}
}

func TestRender_InlinesCompleteAssets(t *testing.T) {
	_, plain := render(t, sampleManifest(), Assets{CSS: ".pswp{}", JS: "var A=1;"})
	if strings.Contains(plain, "var A=1;") {
		t.Error("incomplete assets must not be inlined")
	}

	_, html := render(t, sampleManifest(), Assets{CSS: ".pswp{}", JS: "var A=1;", LightboxJS: "var B=2;"})
	for _, s := range []string{".pswp{}", "var A=1;", "var B=2;"} {
		if !strings.Contains(html, s) {
			t.Errorf("page missing inlined %q", s)
		}
	}
}

func TestFetchAssets_DownloadsAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("body:" + r.URL.Path))
	}))
	defer srv.Close()

	cache := t.TempDir()
	opts := FetchOptions{Version: "5.4.4", BaseURL: srv.URL, CacheDir: cache}

	a, err := FetchAssets(context.Background(), opts)
	if err != nil {
		t.Fatalf("FetchAssets() error = %v", err)
	}
	if a.CSS != "body:/5.4.4/photoswipe.min.css" {
		t.Errorf("CSS = %q", a.CSS)
	}
	if a.LightboxJS != "body:/5.4.4/umd/photoswipe-lightbox.umd.min.js" {
		t.Errorf("LightboxJS = %q", a.LightboxJS)
	}
	if _, err := os.Stat(filepath.Join(cache, "5.4.4", "umd", "photoswipe.umd.min.js")); err != nil {
		t.Errorf("asset not cached: %v", err)
	}

	before := hits.Load()
	again, err := FetchAssets(context.Background(), opts)
	if err != nil {
		t.Fatalf("cached FetchAssets() error = %v", err)
	}
	if hits.Load() != before {
		t.Errorf("cached fetch made %d requests", hits.Load()-before)
	}
	if again != a {
		t.Error("cached assets differ from downloaded ones")
	}
}

func TestFetchAssets_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".css") {
			w.Write([]byte("css"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cache := t.TempDir()
	a, err := FetchAssets(context.Background(), FetchOptions{BaseURL: srv.URL, CacheDir: cache})
	if err == nil {
		t.Fatal("expected error")
	}
	var dl types.ErrDownload
	if !errors.As(err, &dl) || dl.StatusCode != http.StatusNotFound {
		t.Errorf("error = %v; want ErrDownload 404", err)
	}
	if a.Complete() || a.CSS != "" {
		t.Errorf("assets = %+v; want empty", a)
	}
	entries, _ := os.ReadDir(cache)
	if len(entries) != 0 {
		t.Error("partial download must not be cached")
	}
}

func TestFetchAssets_Offline(t *testing.T) {
	if _, err := FetchAssets(context.Background(), FetchOptions{Offline: true}); err == nil {
		t.Error("offline fetch must fail")
	}
}

func TestDoWithRetry(t *testing.T) {
	old := retryWait
	retryWait = time.Millisecond
	defer func() { retryWait = old }()

	tests := []struct {
		name      string
		throttled int32
		wantErr   bool
		wantCalls int32
	}{
		{"no throttling", 0, false, 1},
		{"two 429s then ok", 2, false, 3},
		{"always throttled", 100, true, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) <= tt.throttled {
					w.Header().Set("Retry-After", "0")
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				w.Write([]byte("ok"))
			}))
			defer srv.Close()

			req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
			resp, err := DoWithRetry(context.Background(), srv.Client(), req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DoWithRetry() error = %v; wantErr %v", err, tt.wantErr)
			}
			if resp != nil {
				resp.Body.Close()
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d; want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestDoWithRetry_ContextCancelled(t *testing.T) {
	old := retryWait
	retryWait = time.Hour
	defer func() { retryWait = old }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := DoWithRetry(ctx, srv.Client(), req); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v; want deadline exceeded", err)
	}
}
