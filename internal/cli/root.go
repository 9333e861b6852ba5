// Package cli implements the imgpack command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mydehq/imgpack/internal/browser"
	"github.com/mydehq/imgpack/internal/config"
	"github.com/mydehq/imgpack/internal/gallery"
	"github.com/mydehq/imgpack/internal/server"
	"github.com/mydehq/imgpack/internal/site"
	"github.com/mydehq/imgpack/internal/types"
	"github.com/mydehq/imgpack/internal/ui"
)

var logger *log.Logger

var (
	flagConfig    string
	flagLogLevel  string
	flagTabs      []string
	flagRecursive bool
	flagDepth     int
	flagZip       bool
	flagNoBrowser bool
	flagOut       string
	flagServe     bool
	flagWatch     bool
	flagAddr      string
	flagOffline   bool
)

// RootCmd builds a gallery from a directory.
var RootCmd = &cobra.Command{
	Use:   "imgpack [path]",
	Short: "Build a browsable gallery from a directory of media files",
	Long: `Collects images, videos and audio under path (default ".") into a new
self-contained gallery directory with an index.html viewer.

Files can be grouped into tabs by case-insensitive filename substrings:

  imgpack --tabs v1,mp4 ~/Pictures`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("log-level") {
			ui.SetLevel(logger, flagLogLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		if err := runBuild(cmd, path); err != nil {
			fail(err)
		}
	},
}

func init() {
	logger = ui.NewLogger(os.Stderr, "info")

	RootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default $XDG_CONFIG_HOME/imgpack/config.yml)")
	RootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")

	addSelectionFlags(RootCmd)
	f := RootCmd.Flags()
	f.BoolVar(&flagZip, "zip", false, "also write <gallery>.zip")
	f.BoolVar(&flagNoBrowser, "no-browser", false, "do not open the result")
	f.StringVar(&flagOut, "out", ".", "parent directory for the gallery")
	f.BoolVar(&flagServe, "serve", false, "serve the gallery after building")
	f.BoolVar(&flagWatch, "watch", false, "rebuild when source media changes")
	f.StringVar(&flagAddr, "addr", "", "preview server address (default 127.0.0.1:8000)")
	f.BoolVar(&flagOffline, "offline", false, "do not download the PhotoSwipe lightbox")
}

// addSelectionFlags registers the flags that control which files are collected.
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&flagTabs, "tabs", nil, "tab patterns (repeatable or comma separated)")
	cmd.Flags().BoolVarP(&flagRecursive, "recursive", "r", false, "search all subdirectories")
	cmd.Flags().IntVar(&flagDepth, "depth", 1, "max directory depth when not recursive")
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fail(err)
	}
}

func fail(err error) {
	logger.Error(err.Error())
	os.Exit(1)
}

// loadConfig returns the config file merged with every flag set on cmd.
func loadConfig(cmd *cobra.Command) (*types.Config, error) {
	var (
		cfg *types.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
	} else {
		cfg, err = config.LoadGlobal()
	}
	if err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	flags := cmd.Flags()
	if flags.Changed("tabs") {
		cfg.Tabs = flagTabs
	}
	if flags.Changed("recursive") {
		cfg.Recursive = flagRecursive
	}
	if flags.Changed("depth") {
		cfg.Depth = flagDepth
	}
	if flags.Changed("zip") {
		cfg.Zip = flagZip
	}
	if flags.Changed("no-browser") {
		cfg.NoBrowser = flagNoBrowser
	}
	if flags.Changed("offline") {
		cfg.Assets.Offline = flagOffline
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = flagAddr
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	ui.SetLevel(logger, cfg.LogLevel)
	return cfg, nil
}

func buildOptions(cfg *types.Config, root, outParent string) gallery.Options {
	cacheDir := cfg.Assets.CacheDir
	if cacheDir == "" {
		cacheDir = site.DefaultCacheDir()
	}
	return gallery.Options{
		Root:         root,
		Patterns:     cfg.Tabs,
		Recursive:    cfg.Recursive,
		Depth:        cfg.Depth,
		OutputParent: outParent,
		Prefix:       cfg.OutputPrefix,
		ExcludeDirs:  cfg.ExcludeDirs,
		Zip:          cfg.Zip,
		EXIF:         cfg.EXIF,
		Fetch: site.FetchOptions{
			Version:  cfg.Assets.PhotoSwipeVersion,
			CacheDir: cacheDir,
			Offline:  cfg.Assets.Offline,
		},
	}
}

func serverOptions(cfg *types.Config) server.Options {
	return server.Options{
		Addr:       cfg.Server.Addr,
		MaxConns:   cfg.Server.MaxConns,
		ExportRate: cfg.Server.ExportRate,
	}
}

func runBuild(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	opts := buildOptions(cfg, root, flagOut)

	res, err := buildWithSpinner(ctx, opts, root)
	if err != nil {
		if errors.Is(err, types.ErrNoMedia) {
			return fmt.Errorf("no media files found in %s", root)
		}
		return err
	}
	printSummary(cmd.OutOrStdout(), res)

	if !flagServe {
		if flagWatch {
			return watch(ctx, opts, res)
		}
		if !cfg.NoBrowser {
			if err := browser.OpenFile(res.IndexPath); err != nil {
				logger.Warn("Could not open browser", "err", err, "path", res.IndexPath)
			}
		}
		return nil
	}

	srv := server.New(res.OutputDir, serverOptions(cfg), logger)
	ln, err := srv.Listen()
	if err != nil {
		return err
	}
	if flagWatch {
		go func() {
			if err := watch(ctx, opts, res); err != nil {
				logger.Error("Watch stopped", "err", err)
			}
		}()
	}
	if !cfg.NoBrowser {
		if err := browser.OpenURL("http://" + ln.Addr().String() + "/"); err != nil {
			logger.Warn("Could not open browser", "err", err)
		}
	}
	return srv.Serve(ctx, ln)
}

// buildWithSpinner runs the pipeline behind a spinner when stderr is a terminal.
func buildWithSpinner(ctx context.Context, opts gallery.Options, root string) (*gallery.Result, error) {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return gallery.Build(ctx, opts, logger)
	}

	var (
		res      *gallery.Result
		buildErr error
	)
	err := spinner.New().
		Title(fmt.Sprintf("%s %s", StyleDim.Render("Building gallery from"), StylePath.Render(root))).
		Action(func() {
			res, buildErr = gallery.Build(ctx, opts, logger)
		}).
		Run()
	if err != nil {
		return nil, fmt.Errorf("spinner failed: %w", err)
	}
	return res, buildErr
}

func watch(ctx context.Context, opts gallery.Options, first *gallery.Result) error {
	opts.OutputDir = first.OutputDir
	opts.Assets = &first.Assets
	return gallery.Watch(ctx, opts, logger, func(res *gallery.Result, err error) {
		if err != nil {
			logger.Error("Rebuild failed", "err", err)
			return
		}
		s := res.Manifest.Summary
		logger.Info("Rebuilt", "unique", s.Unique, "copied", s.Copied)
	})
}
