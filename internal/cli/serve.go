package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mydehq/imgpack/internal/browser"
	"github.com/mydehq/imgpack/internal/gallery"
	"github.com/mydehq/imgpack/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve <gallery>",
	Short: "Serve an existing gallery with selective download enabled",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd, args[0]); err != nil {
			fail(err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default 127.0.0.1:8000)")
	serveCmd.Flags().BoolVar(&flagNoBrowser, "no-browser", false, "do not open the gallery")
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, dir string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if !gallery.Exists(absDir) {
		return fmt.Errorf("%s is not a gallery (no index.html)", absDir)
	}

	srv := server.New(absDir, serverOptions(cfg), logger)
	ln, err := srv.Listen()
	if err != nil {
		return err
	}
	if !cfg.NoBrowser {
		if err := browser.OpenURL("http://" + ln.Addr().String() + "/"); err != nil {
			logger.Warn("Could not open browser", "err", err)
		}
	}
	return srv.Serve(cmd.Context(), ln)
}
