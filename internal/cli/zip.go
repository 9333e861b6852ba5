package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mydehq/imgpack/internal/export"
)

var zipCmd = &cobra.Command{
	Use:   "zip <gallery>",
	Short: "Archive a gallery directory into <gallery>.zip",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runZip(args[0]); err != nil {
			fail(err)
		}
	},
}

func init() {
	RootCmd.AddCommand(zipCmd)
}

func runZip(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	out, err := export.ArchiveAll(absDir)
	if err != nil {
		return err
	}

	size := ""
	if fi, err := os.Stat(out); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	logger.Info(fmt.Sprintf("%s: %s %s", StyleHeader.Render("Archive created"), StylePath.Render(out), StyleDim.Render(size)))
	return nil
}
