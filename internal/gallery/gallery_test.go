package gallery

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mydehq/imgpack/internal/site"
	"github.com/mydehq/imgpack/internal/types"
)

var quiet = log.New(io.Discard)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 14, 15, 9, 26, 0, time.Local)
}

func offline() site.FetchOptions {
	return site.FetchOptions{Offline: true}
}

func TestOutputDirName(t *testing.T) {
	if got := OutputDirName("", fixedNow()); got != "imgshare_20250314_1509" {
		t.Errorf("OutputDirName() = %q; want imgshare_20250314_1509", got)
	}
	if got := OutputDirName("pics", fixedNow()); got != "pics_20250314_1509" {
		t.Errorf("OutputDirName() = %q; want pics_20250314_1509", got)
	}
}

func TestBuild_Scenario(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "x_v1.png"))
	touch(t, filepath.Join(root, "y_v2.png"))
	touch(t, filepath.Join(root, "z.mp4"))
	parent := t.TempDir()

	res, err := Build(context.Background(), Options{
		Root:         root,
		Patterns:     []string{"v1", "mp4"},
		Depth:        1,
		OutputParent: parent,
		Fetch:        offline(),
		Now:          fixedNow,
	}, quiet)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if want := filepath.Join(parent, "imgshare_20250314_1509"); res.OutputDir != want {
		t.Errorf("OutputDir = %q; want %q", res.OutputDir, want)
	}
	if res.Manifest.Summary.Unique != 3 {
		t.Errorf("Unique = %d; want 3", res.Manifest.Summary.Unique)
	}
	for _, rel := range []string{"index.html", "media/v1/x_v1.png", "media/mp4/z.mp4", "media/other/y_v2.png"} {
		if _, err := os.Stat(filepath.Join(res.OutputDir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}

	html, _ := os.ReadFile(res.IndexPath)
	for _, label := range []string{"all (3)", "v1 (1)", "mp4 (1)", "other (1)"} {
		if !strings.Contains(string(html), label) {
			t.Errorf("index.html missing tab %q", label)
		}
	}
	if res.ArchivePath != "" {
		t.Errorf("ArchivePath = %q; want none", res.ArchivePath)
	}
}

func TestBuild_EmptyDirectoryCreatesNothing(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "notes.txt"))
	parent := t.TempDir()

	_, err := Build(context.Background(), Options{
		Root:         root,
		OutputParent: parent,
		Fetch:        offline(),
		Now:          fixedNow,
	}, quiet)
	if !errors.Is(err, types.ErrNoMedia) {
		t.Fatalf("Build() error = %v; want ErrNoMedia", err)
	}
	entries, _ := os.ReadDir(parent)
	if len(entries) != 0 {
		t.Errorf("output parent has %d entries; want none", len(entries))
	}
}

func TestBuild_OutputInsideRootIsExcluded(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))
	touch(t, filepath.Join(root, "imgshare_20240101_0000", "media", "old.jpg"))

	opts := Options{Root: root, Recursive: true, OutputParent: root, Fetch: offline(), Now: fixedNow}
	first, err := Build(context.Background(), opts, quiet)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if first.Manifest.Summary.Unique != 1 {
		t.Errorf("first Unique = %d; want 1", first.Manifest.Summary.Unique)
	}

	opts.OutputDir = first.OutputDir
	second, err := Build(context.Background(), opts, quiet)
	if err != nil {
		t.Fatalf("second Build() error = %v", err)
	}
	if second.Manifest.Summary.Unique != 1 || second.Manifest.Summary.Copied != 0 {
		t.Errorf("second run unique/copied = %d/%d; want 1/0", second.Manifest.Summary.Unique, second.Manifest.Summary.Copied)
	}
}

func TestBuild_Zip(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))
	out := filepath.Join(t.TempDir(), "gallery")

	res, err := Build(context.Background(), Options{Root: root, OutputDir: out, Zip: true, Fetch: offline()}, quiet)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if res.ArchivePath != out+".zip" {
		t.Errorf("ArchivePath = %q; want %q", res.ArchivePath, out+".zip")
	}
	if _, err := os.Stat(res.ArchivePath); err != nil {
		t.Errorf("archive missing: %v", err)
	}
}

func TestBuild_PreloadedAssets(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))
	assets := &site.Assets{CSS: "/*css*/", JS: "var js=1;", LightboxJS: "var lb=1;"}

	res, err := Build(context.Background(), Options{
		Root:      root,
		OutputDir: filepath.Join(t.TempDir(), "g"),
		Assets:    assets,
	}, quiet)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	html, _ := os.ReadFile(res.IndexPath)
	if !strings.Contains(string(html), "var lb=1;") {
		t.Error("preloaded assets not inlined")
	}
}

func TestBuild_InvalidPattern(t *testing.T) {
	parent := t.TempDir()
	_, err := Build(context.Background(), Options{
		Root:         t.TempDir(),
		Patterns:     []string{"other"},
		OutputParent: parent,
		Fetch:        offline(),
	}, quiet)
	var reserved types.ErrReservedBucket
	if !errors.As(err, &reserved) {
		t.Fatalf("Build() error = %v; want ErrReservedBucket", err)
	}
}

func TestWatch_RebuildsOnNewMedia(t *testing.T) {
	old := debounceDelay
	debounceDelay = 50 * time.Millisecond
	defer func() { debounceDelay = old }()

	root := t.TempDir()
	touch(t, filepath.Join(root, "a.jpg"))
	out := filepath.Join(t.TempDir(), "gallery")
	opts := Options{Root: root, OutputDir: out, Recursive: true, Fetch: offline()}

	if _, err := Build(context.Background(), opts, quiet); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	builds := make(chan *Result, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, opts, quiet, func(res *Result, err error) {
			if err != nil {
				return
			}
			select {
			case builds <- res:
			default:
			}
		})
	}()

	// Give the watcher time to register
	time.Sleep(200 * time.Millisecond)
	touch(t, filepath.Join(root, "sub", "b.png"))
	time.Sleep(200 * time.Millisecond)
	touch(t, filepath.Join(root, "sub", "c.png"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case res := <-builds:
			if res.Manifest.Summary.Unique == 3 {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Watch() error = %v", err)
				}
				if _, err := os.Stat(filepath.Join(out, "media", "c.png")); err != nil {
					t.Errorf("c.png not copied: %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("no rebuild picked up the new files")
		}
	}
}
