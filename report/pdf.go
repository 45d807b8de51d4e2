package report

import (
	"context"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// PDFRenderer turns report HTML into PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// ChromeRenderer prints the report through the run's existing headless
// Chrome instance via the DevTools printToPDF command. Page size and
// margins come from the document's @page rule.
type ChromeRenderer struct {
	browser *rod.Browser
}

// NewChromeRenderer reuses an already-connected browser.
func NewChromeRenderer(browser *rod.Browser) *ChromeRenderer {
	return &ChromeRenderer{browser: browser}
}

// Render loads the HTML into a fresh tab and prints it.
func (r *ChromeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = page.Close() }()

	p := page.Context(ctx)

	if err := p.SetDocumentContent(html); err != nil {
		return nil, err
	}
	// Data-URI images decode synchronously but layout still needs a beat.
	if err := p.WaitDOMStable(100*time.Millisecond, 0); err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	stream, err := p.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, err
	}

	return io.ReadAll(stream)
}
