package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/mydehq/imgpack/internal/gallery"
)

// printSummary writes the post-build report.
func printSummary(w io.Writer, res *gallery.Result) {
	m := res.Manifest
	s := m.Summary

	fmt.Fprintf(w, "%s\n", StyleHeader.Render("Gallery created"))
	fmt.Fprintf(w, "  %s %s\n", StyleDim.Render("Location:"), StylePath.Render(res.OutputDir))
	fmt.Fprintf(w, "  %s %d (%s)\n", StyleDim.Render("Unique files:"), s.Unique, humanize.Bytes(uint64(s.Bytes)))
	fmt.Fprintf(w, "  %s %s copied, %s already present\n",
		StyleDim.Render("Media:"), humanize.Comma(int64(s.Copied)), humanize.Comma(int64(s.Skipped)))

	if len(s.Extensions) > 0 {
		exts := make([]string, 0, len(s.Extensions))
		for ext := range s.Extensions {
			exts = append(exts, ext)
		}
		sort.Strings(exts)

		fmt.Fprintf(w, "\n%s\n", StyleHeader.Render("Media types"))
		for _, ext := range exts {
			fmt.Fprintf(w, "  %s %s %d\n", StyleDim.Render("-"), StylePattern.Render(ext), s.Extensions[ext])
		}
	}

	if m.Patterned {
		fmt.Fprintf(w, "\n%s\n", StyleHeader.Render("Tabs"))
		for _, b := range m.Buckets {
			fmt.Fprintf(w, "  %s %s %d\n", StyleDim.Render("-"), StylePattern.Render(b.Name), b.Count)
		}
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintf(w, "\n%s\n", styleWarn.Render(fmt.Sprintf("%d path(s) skipped, see log", len(res.Warnings))))
	}
	if res.ArchivePath != "" {
		fmt.Fprintf(w, "\n%s %s\n", StyleDim.Render("Archive:"), StylePath.Render(res.ArchivePath))
	}
	fmt.Fprintf(w, "\n%s %s\n", StyleDim.Render("Open:"), StyleCommand.Render(res.IndexPath))
}
