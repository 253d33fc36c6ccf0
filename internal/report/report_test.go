package report_test

import (
	"bytes"
	"design-diff/internal/report"
	"design-diff/internal/store"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewPage(t *testing.T) {
	baseline := &store.Baseline{NodeName: "Button", ImageKey: "baseline/a.png"}
	comparison := &store.Comparison{
		IssueKey:       "DES-1",
		CreatedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ChangedPercent: 2.5,
		ChangedPixels:  25,
		AfterImageKey:  "after/b.png",
		DiffImageKey:   "diff/c.png",
	}

	got := report.NewPage(baseline, comparison, []byte("  {\n-   \"w\": 1\n+   \"w\": 2\n  }"))
	want := report.Page{
		IssueKey:       "DES-1",
		NodeName:       "Button",
		CreatedAt:      comparison.CreatedAt,
		ChangedPercent: 2.5,
		ChangedPixels:  25,
		BaselineImage:  "baseline/a.png",
		AfterImage:     "after/b.png",
		DiffImage:      "diff/c.png",
		Structure: []report.Line{
			{Kind: "unchanged", Text: "{"},
			{Kind: "removed", Text: `  "w": 1`},
			{Kind: "added", Text: `  "w": 2`},
			{Kind: "unchanged", Text: "}"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestRender(t *testing.T) {
	t.Run("Changed", func(t *testing.T) {
		var buffer bytes.Buffer
		err := report.Render(&buffer, report.Page{
			IssueKey:       "DES-9",
			NodeName:       "<Header>",
			CreatedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			ChangedPercent: 12.3456,
			BaselineImage:  "baseline/a.png",
			AfterImage:     "after/b.png",
			DiffImage:      "diff/c.png",
			Structure:      []report.Line{{Kind: "added", Text: "x"}},
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		html := buffer.String()
		for _, want := range []string{
			"<title>Diff Report DES-9</title>",
			"&lt;Header&gt;",
			"2024-03-01T12:00:00Z",
			`class="metric changed"`,
			"Difference: 12.35%",
			`src="/storage/baseline/a.png"`,
			`src="/storage/after/b.png"`,
			`src="/storage/diff/c.png"`,
			`data-component="overlay-slider"`,
			`<span class="added">+ x</span>`,
			`<script src="/static/report.js"></script>`,
		} {
			if !strings.Contains(html, want) {
				t.Errorf("Expected report to contain %q", want)
			}
		}
	})

	t.Run("Unchanged", func(t *testing.T) {
		var buffer bytes.Buffer
		if err := report.Render(&buffer, report.Page{IssueKey: "DES-9", AfterImage: "after/b.png"}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		html := buffer.String()
		if !strings.Contains(html, `class="metric unchanged"`) {
			t.Error("Expected unchanged metric")
		}
		if strings.Contains(html, "<h3>Diff</h3>") {
			t.Error("Expected no diff image section")
		}
		if strings.Contains(html, "<h3>Structure</h3>") {
			t.Error("Expected no structure section")
		}
	})
}

func TestStatic(t *testing.T) {
	data, err := fs.ReadFile(report.Static(), "report.js")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !bytes.Contains(data, []byte("overlay-slider")) {
		t.Error("Expected slider script")
	}
}
