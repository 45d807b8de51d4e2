package models

import "time"

// RecordStatus describes how much of a page could be captured.
type RecordStatus string

const (
	// StatusOK means every expected field was extracted.
	StatusOK RecordStatus = "ok"

	// StatusPartial means the page loaded but one or more expected fields
	// (commonly the thumbnail or the price) could not be extracted.
	StatusPartial RecordStatus = "partial"

	// StatusFailed means the page never loaded within the retry budget.
	StatusFailed RecordStatus = "failed"
)

// PageRecord is the capture result for a single input URL. Exactly one
// record exists per input line, in input order, regardless of failures.
// Once handed to the report compiler a record is not modified again.
type PageRecord struct {
	// SourceURL is the original input line, never mutated.
	SourceURL string

	// Title is the page or product title. Empty when extraction failed.
	Title string

	// CapturedAt is set once, when the URL is dequeued for processing.
	CapturedAt time.Time

	// Price is the displayed price text for vendor-matched product pages.
	Price string

	// Description is the product description for vendor-matched pages.
	Description string

	// Thumbnail is the normalized preview image, nil when none was usable.
	Thumbnail *NormalizedImage

	// Status summarises the capture outcome.
	Status RecordStatus

	// FailureReason carries the final load error for failed records so the
	// report can show why an entry is empty.
	FailureReason string

	// VendorMatched records whether a vendor-specific extractor handled
	// the page. It decides which fields count as expected for the status.
	VendorMatched bool
}

// PartialFields is the subset of record fields a single extractor was able
// to populate from one page. Absent fields stay zero-valued.
type PartialFields struct {
	Title       string
	Price       string
	Description string

	// ImageURL is the chosen image reference, possibly relative to the page.
	ImageURL string

	// ImageCandidates holds image references in document order when no
	// single image could be chosen from markup hints alone. The pipeline
	// resolves the winner by comparing decoded pixel dimensions.
	ImageCandidates []string
}

// NormalizedImage is an image payload converted to a consistent format and
// bounded in dimensions, ready for embedding in the report.
type NormalizedImage struct {
	// Data is the JPEG-encoded payload.
	Data []byte

	// Width and Height are the final pixel dimensions after downscaling.
	Width  int
	Height int

	// SourceURL is the absolute URL the image bytes were fetched from.
	SourceURL string
}
