package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/pagedigest/config"
	"github.com/use-agent/pagedigest/models"
)

// fakeRenderer captures the HTML it is asked to print.
type fakeRenderer struct {
	lastHTML string
	err      error
}

func (f *fakeRenderer) Render(_ context.Context, html string) ([]byte, error) {
	f.lastHTML = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-fake"), nil
}

func testRecords(n int) []models.PageRecord {
	records := make([]models.PageRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, models.PageRecord{
			SourceURL:  fmt.Sprintf("https://example.org/page/%d", i),
			Title:      fmt.Sprintf("Page %d", i),
			CapturedAt: time.Date(2025, 6, 1, 12, 0, i, 0, time.UTC),
			Status:     models.StatusOK,
		})
	}
	return records
}

// selectAll parses the built report and runs a CSS selector over it.
func selectAll(t *testing.T, doc, selector string) []*html.Node {
	t.Helper()
	sel, err := cascadia.Parse(selector)
	if err != nil {
		t.Fatalf("parse selector %q: %v", selector, err)
	}
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse report HTML: %v", err)
	}
	return cascadia.QueryAll(root, sel)
}

func newTestCompiler(r PDFRenderer) *Compiler {
	return NewCompiler(r, config.ReportConfig{PaperSize: "A4", Footer: "test run"})
}

func TestBuildHTML_OneSectionPerRecordInOrder(t *testing.T) {
	c := newTestCompiler(&fakeRenderer{})
	out, err := c.BuildHTML(testRecords(5))
	if err != nil {
		t.Fatalf("BuildHTML: %v", err)
	}

	sections := selectAll(t, out, "section.entry")
	if len(sections) != 5 {
		t.Fatalf("got %d sections, want 5", len(sections))
	}
	for i := 0; i < 5; i++ {
		title := fmt.Sprintf("Page %d", i)
		idx := strings.Index(out, title)
		if idx < 0 {
			t.Fatalf("missing %q in report", title)
		}
		if i > 0 {
			prev := strings.Index(out, fmt.Sprintf("Page %d", i-1))
			if prev > idx {
				t.Errorf("record %d rendered before record %d", i, i-1)
			}
		}
	}
}

func TestBuildHTML_TitleLinksToSource(t *testing.T) {
	c := newTestCompiler(&fakeRenderer{})
	out, err := c.BuildHTML(testRecords(1))
	if err != nil {
		t.Fatalf("BuildHTML: %v", err)
	}

	links := selectAll(t, out, `h1 a[href="https://example.org/page/0"]`)
	if len(links) != 1 {
		t.Errorf("got %d title links, want 1", len(links))
	}
}

func TestBuildHTML_OptionalFields(t *testing.T) {
	rec := testRecords(1)[0]
	rec.Price = "INR 1,299"
	rec.Description = "A fine mouse."
	rec.Thumbnail = &models.NormalizedImage{Data: []byte{0xff, 0xd8, 0xff}, Width: 10, Height: 10}

	c := newTestCompiler(&fakeRenderer{})
	out, err := c.BuildHTML([]models.PageRecord{rec})
	if err != nil {
		t.Fatalf("BuildHTML: %v", err)
	}

	if !strings.Contains(out, "Price: INR 1,299") {
		t.Error("price missing from report")
	}
	if !strings.Contains(out, "A fine mouse.") {
		t.Error("description missing from report")
	}
	if len(selectAll(t, out, `img.thumb[src^="data:image/jpeg;base64,"]`)) != 1 {
		t.Error("thumbnail not embedded as a JPEG data URI")
	}
}

func TestBuildHTML_OmitsAbsentOptionalFields(t *testing.T) {
	c := newTestCompiler(&fakeRenderer{})
	out, err := c.BuildHTML(testRecords(1))
	if err != nil {
		t.Fatalf("BuildHTML: %v", err)
	}
	if strings.Contains(out, "Price:") {
		t.Error("price line rendered for a record without one")
	}
	if !strings.Contains(out, "Thumbnail could not be loaded.") {
		t.Error("missing-thumbnail notice absent")
	}
}

func TestBuildHTML_AllFailedStillRenders(t *testing.T) {
	records := []models.PageRecord{
		{SourceURL: "https://down.example.org/a", Status: models.StatusFailed, FailureReason: "LOAD_TIMEOUT: page did not settle in time", CapturedAt: time.Now()},
		{SourceURL: "https://down.example.org/b", Status: models.StatusFailed, CapturedAt: time.Now()},
	}

	c := newTestCompiler(&fakeRenderer{})
	out, err := c.BuildHTML(records)
	if err != nil {
		t.Fatalf("BuildHTML must succeed on an all-failed list: %v", err)
	}

	if len(selectAll(t, out, "section.entry")) != 2 {
		t.Error("expected a section per failed record")
	}
	if !strings.Contains(out, "https://down.example.org/a") {
		t.Error("failed record URL missing")
	}
	if !strings.Contains(out, "Page could not be loaded: LOAD_TIMEOUT") {
		t.Error("failure notice missing")
	}
}

func TestCompile_PassesHTMLToRenderer(t *testing.T) {
	fr := &fakeRenderer{}
	c := newTestCompiler(fr)

	pdf, err := c.Compile(context.Background(), testRecords(2))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if string(pdf) != "%PDF-fake" {
		t.Errorf("unexpected PDF bytes: %q", pdf)
	}
	if !strings.Contains(fr.lastHTML, "Page 1") {
		t.Error("renderer did not receive the built HTML")
	}
}

func TestWriteFile_WriteFailureIsTyped(t *testing.T) {
	c := newTestCompiler(&fakeRenderer{})
	err := c.WriteFile(context.Background(), testRecords(1), t.TempDir()+"/nope/out.pdf")
	if err == nil {
		t.Fatal("expected error for unwritable destination")
	}
	var de *models.DigestError
	if !errors.As(err, &de) || de.Code != models.ErrCodeReportWrite {
		t.Errorf("error = %v, want code %s", err, models.ErrCodeReportWrite)
	}
}
