// Package site renders a gallery manifest into a self-contained index.html.
package site

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mydehq/imgpack/internal/export"
	"github.com/mydehq/imgpack/internal/manifest"
)

// IndexFile is the name of the rendered page inside the gallery root.
const IndexFile = "index.html"

//go:embed templates/index.html.tmpl
var templateFS embed.FS

var indexTmpl = template.Must(template.New("index.html.tmpl").Funcs(template.FuncMap{
	"upper": func(v any) string { return strings.ToUpper(fmt.Sprint(v)) },
	"taken": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
}).ParseFS(templateFS, "templates/index.html.tmpl"))

type tab struct {
	ID      string
	Name    string
	Count   int
	Active  bool
	Entries []manifest.Entry
}

type page struct {
	Title       string
	Tabs        []tab
	Lightbox    bool
	CSS         template.CSS
	JS          template.JS
	LightboxJS  template.JS
	ArchiveName string
}

// Render writes the gallery page for m to w. The PhotoSwipe lightbox is inlined
// when assets are complete; otherwise the page is a plain grid.
func Render(w io.Writer, m *manifest.Manifest, assets Assets) error {
	p := page{
		Title:       "Image Gallery",
		ArchiveName: export.SelectionFilename,
	}
	if assets.Complete() {
		p.Lightbox = true
		p.CSS = template.CSS(assets.CSS)
		p.JS = template.JS(assets.JS)
		p.LightboxJS = template.JS(assets.LightboxJS)
	}

	for i, b := range m.Buckets {
		t := tab{
			ID:     "tab-" + strconv.Itoa(i),
			Name:   b.Name,
			Count:  b.Count,
			Active: i == 0,
		}
		for _, e := range b.Entries {
			// Nothing on disk to link to
			if e.Shadowed || e.Missing {
				continue
			}
			t.Entries = append(t.Entries, e)
		}
		p.Tabs = append(p.Tabs, t)
	}

	if err := indexTmpl.Execute(w, p); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}
