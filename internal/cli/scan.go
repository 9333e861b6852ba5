package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mydehq/imgpack/internal/classifier"
	"github.com/mydehq/imgpack/internal/gallery"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Show how media files would be grouped into tabs",
	Long:  "Classifies the media under path with the configured tab patterns and prints every tab with its files. Nothing is written.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		if err := runScan(cmd, cmd.OutOrStdout(), path); err != nil {
			fail(err)
		}
	},
}

func init() {
	addSelectionFlags(scanCmd)
	RootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, w io.Writer, path string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	opts := buildOptions(cfg, absPath, ".")
	res, err := classifier.Classify(absPath, gallery.ClassifyOptions(opts, ""))
	if err != nil {
		return err
	}
	for _, warn := range res.Warnings {
		logger.Warn("Skipped", "path", warn.Path, "err", warn.Err)
	}

	if res.Empty() {
		fmt.Fprintf(w, "No media files found in: %s\n", StylePath.Render(absPath))
		return nil
	}

	fmt.Fprintf(w, "%s in: %s\n", StyleHeader.Render("Tabs"), StylePath.Render(absPath))
	for _, b := range res.Buckets {
		fmt.Fprintf(w, "\n%s %s\n", StylePattern.Render(b.Name), StyleDim.Render(fmt.Sprintf("(%d)", b.Len())))
		for _, f := range b.Files {
			rel, err := filepath.Rel(absPath, f.Path)
			if err != nil {
				rel = f.Path
			}
			fmt.Fprintf(w, " %s %s\n", StyleDim.Render("-"), rel)
		}
	}
	return nil
}
