package extractor

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/pagedigest/models"
)

// metaImageKeys are tried in order against both the property and name
// attributes of <meta> tags. Publisher-curated preview images beat any
// in-page <img> heuristic.
var metaImageKeys = []string{"og:image", "twitter:image", "image"}

// maxImageCandidates bounds how many unranked images are handed to the
// dimension prober when markup carries no size hints.
const maxImageCandidates = 8

// Generic is the fallback extractor: document title plus the largest
// embedded image. It matches every URL, so it must sit last in the registry.
type Generic struct{}

// NewGeneric returns the generic fallback extractor.
func NewGeneric() *Generic {
	return &Generic{}
}

func (g *Generic) Name() string { return "generic" }

func (g *Generic) Match(string) bool { return true }

// Extract pulls the page title and picks a preview image:
//
//  1. meta preview tags (og:image, twitter:image, image)
//  2. the <img> with the largest width×height attribute area
//  3. no usable hints — all images in document order, for the caller to
//     rank by decoded pixel dimensions
//
// Ties and hint-free documents resolve to first-in-document-order.
func (g *Generic) Extract(doc *goquery.Document, pageURL string) models.PartialFields {
	fields := models.PartialFields{
		Title: cleanText(doc.Find("title").First().Text()),
	}

	if src := metaImage(doc); src != "" {
		fields.ImageURL = src
		return fields
	}

	best, candidates := largestByAttrs(doc)
	if best != "" {
		fields.ImageURL = best
	} else {
		fields.ImageCandidates = candidates
	}
	return fields
}

// metaImage returns the first populated preview-image meta tag.
func metaImage(doc *goquery.Document) string {
	for _, key := range metaImageKeys {
		var content string
		doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			prop, _ := s.Attr("property")
			name, _ := s.Attr("name")
			if prop != key && name != key {
				return true
			}
			if c, ok := s.Attr("content"); ok && strings.TrimSpace(c) != "" {
				content = strings.TrimSpace(c)
				return false
			}
			return true
		})
		if content != "" {
			return content
		}
	}
	return ""
}

// largestByAttrs scans all <img> elements and returns the src with the
// largest explicit width×height area, plus the full candidate list in
// document order. A strictly larger area is required to displace the
// current best, so the first image wins ties.
func largestByAttrs(doc *goquery.Document) (best string, candidates []string) {
	maxArea := 0
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			return
		}
		src = strings.TrimSpace(src)
		if len(candidates) < maxImageCandidates {
			candidates = append(candidates, src)
		}

		area := attrInt(s, "width") * attrInt(s, "height")
		if area > maxArea {
			maxArea = area
			best = src
		}
	})
	return best, candidates
}

// attrInt parses a numeric attribute, tolerating a trailing "px".
func attrInt(s *goquery.Selection, name string) int {
	v, ok := s.Attr(name)
	if !ok {
		return 0
	}
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
