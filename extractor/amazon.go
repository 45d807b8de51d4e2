package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/pagedigest/models"
)

// amazonDomains are the hosts recognized as Amazon product pages.
// Matching is by host suffix, not substring, so "notamazon.com" does
// not qualify.
var amazonDomains = []string{"amazon.com", "amazon.in", "amzn.in"}

const maxDescriptionLen = 600

// Amazon extracts product metadata from Amazon product pages using the
// site's stable element IDs.
type Amazon struct{}

// NewAmazon returns the Amazon product-page extractor.
func NewAmazon() *Amazon {
	return &Amazon{}
}

func (a *Amazon) Name() string { return "amazon" }

// Match reports whether the URL's host is an Amazon domain or a
// subdomain of one.
func (a *Amazon) Match(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range amazonDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// Extract applies the Amazon selector rules. Every field fails soft.
func (a *Amazon) Extract(doc *goquery.Document, pageURL string) models.PartialFields {
	fields := models.PartialFields{
		Title:       cleanText(doc.Find("#productTitle").First().Text()),
		Price:       extractAmazonPrice(doc),
		Description: extractAmazonDescription(doc),
	}

	// The landing image is the primary product shot; fall back to
	// whatever sits in the main image container.
	if src, ok := doc.Find("#landingImage").First().Attr("src"); ok && src != "" {
		fields.ImageURL = src
	} else if src, ok := doc.Find("#main-image-container img").First().Attr("src"); ok {
		fields.ImageURL = src
	}

	return fields
}

// extractAmazonPrice joins the displayed currency symbol and whole amount.
// The literal displayed value is preserved; only the rupee symbol is
// rewritten to a font-safe "INR " prefix.
func extractAmazonPrice(doc *goquery.Document) string {
	symbol := strings.TrimSpace(doc.Find(".a-price-symbol").First().Text())
	whole := strings.TrimSpace(doc.Find(".a-price-whole").First().Text())
	if whole == "" {
		return ""
	}
	if symbol == "₹" {
		symbol = "INR "
	}
	return symbol + whole
}

// extractAmazonDescription prefers the feature bullet list, falling back
// to the long-form product description block.
func extractAmazonDescription(doc *goquery.Document) string {
	var bullets []string
	doc.Find("#feature-bullets li").Each(func(_ int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			bullets = append(bullets, text)
		}
	})

	desc := strings.Join(bullets, " • ")
	if desc == "" {
		desc = cleanText(doc.Find("#productDescription").First().Text())
	}

	if len(desc) > maxDescriptionLen {
		desc = desc[:maxDescriptionLen]
		// Avoid cutting a multi-byte rune or mid-word.
		if idx := strings.LastIndexByte(desc, ' '); idx > 0 {
			desc = desc[:idx]
		}
		desc += "…"
	}
	return desc
}
