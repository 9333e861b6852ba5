// Package gallery runs the build pipeline: classify, materialize, render and
// optionally archive. It also rebuilds on source changes in watch mode.
package gallery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mydehq/imgpack/internal/classifier"
	"github.com/mydehq/imgpack/internal/export"
	"github.com/mydehq/imgpack/internal/fsx"
	"github.com/mydehq/imgpack/internal/manifest"
	"github.com/mydehq/imgpack/internal/site"
	"github.com/mydehq/imgpack/internal/types"
)

// DefaultPrefix names generated gallery directories.
const DefaultPrefix = "imgshare"

// Options describes one build.
type Options struct {
	Root      string
	Patterns  []string
	Recursive bool
	Depth     int

	// OutputDir is the gallery directory. When empty it is
	// <OutputParent>/<Prefix>_YYYYMMDD_HHMM.
	OutputDir    string
	OutputParent string
	Prefix       string

	ExcludeDirs []string
	Zip         bool
	EXIF        bool

	Fetch  site.FetchOptions
	Assets *site.Assets // skips the fetch when set

	Now func() time.Time
}

// Result describes a finished build.
type Result struct {
	OutputDir   string
	IndexPath   string
	ArchivePath string
	Manifest    *manifest.Manifest
	Assets      site.Assets
	Warnings    []classifier.Warning
}

// OutputDirName returns the timestamped gallery directory name.
func OutputDirName(prefix string, t time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "_" + t.Format("20060102_1504")
}

// ResolveOutputDir returns the absolute gallery directory for opts.
func ResolveOutputDir(opts Options) (string, error) {
	if opts.OutputDir != "" {
		return filepath.Abs(opts.OutputDir)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	parent := opts.OutputParent
	if parent == "" {
		parent = "."
	}
	return filepath.Abs(filepath.Join(parent, OutputDirName(opts.Prefix, now())))
}

// ClassifyOptions returns the traversal options for opts, excluding outDir and
// earlier galleries.
func ClassifyOptions(opts Options, outDir string) classifier.Options {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return classifier.Options{
		Patterns:     opts.Patterns,
		Recursive:    opts.Recursive,
		MaxDepth:     opts.Depth,
		Exclude:      append([]string{outDir}, opts.ExcludeDirs...),
		ExcludeNames: []string{prefix + "_*"},
	}
}

// Build runs the pipeline. No output directory is created when no media is found.
func Build(ctx context.Context, opts Options, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	outDir, err := ResolveOutputDir(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	res, err := classifier.Classify(opts.Root, ClassifyOptions(opts, outDir))
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		logger.Warn("Skipped", "path", w.Path, "err", w.Err)
	}
	if res.Empty() {
		return nil, types.ErrNoMedia
	}
	logger.Debug("Classified", "root", res.Root, "files", res.All().Len(), "buckets", len(res.Buckets))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mediaRoot := filepath.Join(outDir, manifest.MediaDir)
	m, err := manifest.Build(res, mediaRoot, manifest.Options{EXIF: opts.EXIF})
	if err != nil {
		return nil, err
	}
	for _, w := range m.Warnings {
		logger.Warn("Copy problem", "path", w.Path, "err", w.Err)
	}

	out := &Result{
		OutputDir: outDir,
		IndexPath: filepath.Join(outDir, site.IndexFile),
		Manifest:  m,
		Warnings:  append(append([]classifier.Warning{}, res.Warnings...), m.Warnings...),
	}

	if opts.Assets != nil {
		out.Assets = *opts.Assets
	} else {
		out.Assets = fetchAssets(ctx, opts.Fetch, logger)
	}

	err = fsx.WriteAtomic(out.IndexPath, 0o644, func(w io.Writer) error {
		return site.Render(w, m, out.Assets)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", out.IndexPath, err)
	}

	if opts.Zip {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := export.ArchiveAll(outDir)
		if err != nil {
			return nil, err
		}
		out.ArchivePath = path
	}

	return out, nil
}

func fetchAssets(ctx context.Context, opts site.FetchOptions, logger *log.Logger) site.Assets {
	if opts.Offline {
		logger.Debug("Offline, PhotoSwipe not inlined")
		return site.Assets{}
	}
	a, err := site.FetchAssets(ctx, opts)
	if err != nil {
		logger.Warn("PhotoSwipe unavailable, using plain gallery", "err", err)
		return site.Assets{}
	}
	return a
}

// Exists reports whether dir holds a generated gallery.
func Exists(dir string) bool {
	fi, err := os.Stat(filepath.Join(dir, site.IndexFile))
	return err == nil && fi.Mode().IsRegular()
}
