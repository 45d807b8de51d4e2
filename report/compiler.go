// Package report compiles finalized page records into a single paginated
// PDF document: a deterministic HTML layout printed through headless
// Chrome. Layout and rendering are split so the layout is testable
// without a browser.
package report

import (
	"context"
	"os"
	"strings"

	"github.com/use-agent/pagedigest/config"
	"github.com/use-agent/pagedigest/models"
)

// Compiler renders an ordered, finalized record list into PDF bytes.
// It is the terminal step of a run and never mutates the records.
type Compiler struct {
	renderer PDFRenderer
	cfg      config.ReportConfig
}

// NewCompiler builds a Compiler on top of the given renderer.
func NewCompiler(renderer PDFRenderer, cfg config.ReportConfig) *Compiler {
	if cfg.PaperSize == "" {
		cfg.PaperSize = "A4"
	}
	return &Compiler{renderer: renderer, cfg: cfg}
}

// BuildHTML produces the report markup: one section per record, in input
// order. It succeeds for any record list, including an all-failed one.
func (c *Compiler) BuildHTML(records []models.PageRecord) (string, error) {
	var sb strings.Builder
	err := reportTmpl.Execute(&sb, templateData{
		Records:   records,
		PaperSize: c.cfg.PaperSize,
		Footer:    c.cfg.Footer,
	})
	if err != nil {
		return "", models.NewDigestError(models.ErrCodeReportRender, "report template failed", err)
	}
	return sb.String(), nil
}

// Compile renders the record list to PDF bytes.
func (c *Compiler) Compile(ctx context.Context, records []models.PageRecord) ([]byte, error) {
	if c.cfg.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RenderTimeout)
		defer cancel()
	}

	html, err := c.BuildHTML(records)
	if err != nil {
		return nil, err
	}

	pdf, err := c.renderer.Render(ctx, html)
	if err != nil {
		return nil, models.NewDigestError(models.ErrCodeReportRender, "PDF rendering failed", err)
	}
	return pdf, nil
}

// WriteFile compiles the records and writes the PDF to path. A write
// failure here is the only compile-stage error that aborts a run.
func (c *Compiler) WriteFile(ctx context.Context, records []models.PageRecord, path string) error {
	pdf, err := c.Compile(ctx, records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return models.NewDigestError(models.ErrCodeReportWrite, "cannot write report file", err)
	}
	return nil
}
