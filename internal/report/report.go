package report

import (
	"bytes"
	"design-diff/internal/store"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var reportTemplate = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"percent": func(v float64) string {
		return fmt.Sprintf("%.2f%%", v)
	},
	"timestamp": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
}).ParseFS(templateFS, "templates/report.html"))

// Line is one line of the structure diff with its change marker split off.
type Line struct {
	Kind string
	Text string
}

type Page struct {
	IssueKey       string
	NodeName       string
	CreatedAt      time.Time
	ChangedPercent float64
	ChangedPixels  int64
	BaselineImage  string
	AfterImage     string
	DiffImage      string
	Structure      []Line
}

func (p Page) Changed() bool {
	return p.ChangedPercent > 0
}

// NewPage assembles the report of comparison c against its baseline b.
// structureDiff is the line diff output; an empty one omits the section.
func NewPage(b *store.Baseline, c *store.Comparison, structureDiff []byte) Page {
	nodeName := c.NodeName
	if nodeName == "" {
		nodeName = b.NodeName
	}
	return Page{
		IssueKey:       c.IssueKey,
		NodeName:       nodeName,
		CreatedAt:      c.CreatedAt,
		ChangedPercent: c.ChangedPercent,
		ChangedPixels:  c.ChangedPixels,
		BaselineImage:  b.ImageKey,
		AfterImage:     c.AfterImageKey,
		DiffImage:      c.DiffImageKey,
		Structure:      parseLines(structureDiff),
	}
}

func parseLines(diff []byte) []Line {
	if len(bytes.TrimSpace(diff)) == 0 {
		return nil
	}
	var lines []Line
	for _, l := range strings.Split(string(diff), "\n") {
		line := Line{Kind: "unchanged", Text: l}
		switch {
		case strings.HasPrefix(l, "+ "):
			line = Line{Kind: "added", Text: l[2:]}
		case strings.HasPrefix(l, "- "):
			line = Line{Kind: "removed", Text: l[2:]}
		case strings.HasPrefix(l, "  "):
			line.Text = l[2:]
		}
		lines = append(lines, line)
	}
	return lines
}

func Render(w io.Writer, page Page) error {
	if err := reportTemplate.Execute(w, page); err != nil {
		return xerrors.Errorf("failed to render report: %w", err)
	}
	return nil
}

// Static returns the assets the report page references under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
