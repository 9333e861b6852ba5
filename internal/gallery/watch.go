package gallery

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/mydehq/imgpack/internal/classifier"
)

// Quiet period before a burst of changes triggers a rebuild. Shortened in tests.
var debounceDelay = time.Second

// Watch rebuilds the gallery into opts.OutputDir whenever media under opts.Root
// changes, until ctx is cancelled. onBuild receives every rebuild's outcome.
// Rebuilds never overlap.
func Watch(ctx context.Context, opts Options, logger *log.Logger, onBuild func(*Result, error)) error {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	outDir, err := ResolveOutputDir(opts)
	if err != nil {
		return err
	}
	opts.OutputDir = outDir

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	w := &watch{
		watcher: watcher,
		opts:    opts,
		copts:   ClassifyOptions(opts, outDir),
		logger:  logger,
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return err
	}
	w.root = root
	for i, x := range w.copts.Exclude {
		if abs, err := filepath.Abs(x); err == nil {
			w.copts.Exclude[i] = abs
		}
	}
	w.addTree(root, 1)
	logger.Info("Watching for changes", "root", root, "dirs", len(watcher.WatchList()))

	var mu sync.Mutex
	rebuild := func() {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		logger.Info("Change detected, rebuilding")
		res, err := Build(ctx, w.opts, logger)
		if onBuild != nil {
			onBuild(res, err)
		}
	}

	debounced := debounce.New(debounceDelay)
	for {
		select {
		case <-ctx.Done():
			// Wait for an in-flight rebuild
			mu.Lock()
			defer mu.Unlock()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				logger.Debug("Change", "op", ev.Op.String(), "path", ev.Name)
				debounced(rebuild)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Error in watcher", "err", err)
		}
	}
}

type watch struct {
	watcher *fsnotify.Watcher
	opts    Options
	copts   classifier.Options
	root    string
	logger  *log.Logger
}

// addTree watches dir and every subdirectory the classifier would visit.
func (w *watch) addTree(dir string, depth int) {
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("Cannot watch", "path", dir, "err", err)
		return
	}
	if !w.descend(depth) {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !w.skipped(path) {
			w.addTree(path, depth+1)
		}
	}
}

func (w *watch) descend(depth int) bool {
	return w.copts.Recursive || w.copts.MaxDepth <= 0 || depth < w.copts.MaxDepth
}

func (w *watch) skipped(dir string) bool {
	for _, x := range w.copts.Exclude {
		if x == "" {
			continue
		}
		if dir == x || strings.HasPrefix(dir, x+string(filepath.Separator)) {
			return true
		}
	}
	base := filepath.Base(dir)
	for _, g := range w.copts.ExcludeNames {
		if ok, _ := filepath.Match(g, base); ok {
			return true
		}
	}
	return false
}

// depthOf returns the classifier depth of a directory under root (root is 1).
func (w *watch) depthOf(dir string) int {
	rel, err := filepath.Rel(w.root, dir)
	if err != nil || rel == "." {
		return 1
	}
	return strings.Count(rel, string(filepath.Separator)) + 2
}

func (w *watch) relevant(ev fsnotify.Event) bool {
	if w.skipped(ev.Name) {
		return false
	}
	base := filepath.Base(ev.Name)
	if classifier.IsMedia(base) {
		return true
	}

	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if w.descend(w.depthOf(filepath.Dir(ev.Name))) {
				w.addTree(ev.Name, w.depthOf(ev.Name))
			}
			return true
		}
	}
	// A removed directory may have held media
	return (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) && filepath.Ext(base) == ""
}
