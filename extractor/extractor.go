// Package extractor turns rendered page HTML into the metadata fields a
// report entry needs. Vendor-specific extractors know the selector rules
// for a recognized e-commerce site; a generic fallback handles everything
// else. Extractors are tried in registry order and the first match wins.
package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/pagedigest/models"
)

// Extractor extracts metadata fields from a parsed document.
type Extractor interface {
	// Name identifies the extractor in logs and records.
	Name() string

	// Match reports whether this extractor handles the given URL.
	Match(pageURL string) bool

	// Extract pulls whatever fields it can from the document. A selector
	// that matches nothing yields an absent field, never an error.
	Extract(doc *goquery.Document, pageURL string) models.PartialFields
}

// Registry holds extractors in priority order: vendor-specific first,
// the generic fallback last.
type Registry struct {
	extractors []Extractor
}

// NewRegistry builds a registry from the given extractors, tried in order.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// DefaultRegistry returns the standard chain: Amazon, then generic.
func DefaultRegistry() *Registry {
	return NewRegistry(NewAmazon(), NewGeneric())
}

// ExtractFrom parses the HTML once and applies the first matching
// extractor. It returns the fields and the name of the extractor used.
func (r *Registry) ExtractFrom(rawHTML, pageURL string) (models.PartialFields, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return models.PartialFields{}, "", fmt.Errorf("parse page HTML: %w", err)
	}

	for _, ex := range r.extractors {
		if ex.Match(pageURL) {
			return ex.Extract(doc, pageURL), ex.Name(), nil
		}
	}
	return models.PartialFields{}, "", fmt.Errorf("no extractor matched %s", pageURL)
}

// cleanText collapses runs of whitespace into single spaces and trims.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
