// Package digest runs the per-URL capture pipeline: load the page with
// retries, extract metadata fields, normalize the chosen image, and emit
// exactly one record per input URL in input order. Failures degrade the
// record, never the run.
package digest

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/pagedigest/extractor"
	"github.com/use-agent/pagedigest/models"
	"github.com/use-agent/pagedigest/scraper"
)

// PageLoader drives the browser to a URL and returns the rendered page.
// Satisfied by *scraper.Scraper and by test fakes.
type PageLoader interface {
	Load(ctx context.Context, pageURL string) (*scraper.PageResult, error)
}

// ImageNormalizer turns image references into embeddable payloads.
// Satisfied by *imaging.Normalizer and by test fakes.
type ImageNormalizer interface {
	Normalize(ctx context.Context, imageRef, pageURL string) (*models.NormalizedImage, error)
	NormalizeLargest(ctx context.Context, refs []string, pageURL string) (*models.NormalizedImage, error)
}

// Runner processes a URL list strictly sequentially. The browser session
// is an exclusively-owned resource, so there is exactly one page in flight
// at any moment.
type Runner struct {
	loader  PageLoader
	reg     *extractor.Registry
	images  ImageNormalizer
	retry   scraper.RetryPolicy
	limiter *rate.Limiter
	now     func() time.Time
}

// NewRunner wires the pipeline. ratePerSecond <= 0 disables pacing.
func NewRunner(loader PageLoader, reg *extractor.Registry, images ImageNormalizer, retry scraper.RetryPolicy, ratePerSecond float64) *Runner {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Runner{
		loader:  loader,
		reg:     reg,
		images:  images,
		retry:   retry,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// Run produces exactly len(urls) records, in input order. Individual
// failures are encoded into the records; Run itself never fails.
func (r *Runner) Run(ctx context.Context, urls []string) []models.PageRecord {
	records := make([]models.PageRecord, 0, len(urls))
	for i, u := range urls {
		slog.Info("processing url", "index", i+1, "total", len(urls), "url", u)
		rec := r.processURL(ctx, u)
		slog.Info("url processed",
			"url", u,
			"status", rec.Status,
			"title", rec.Title != "",
			"thumbnail", rec.Thumbnail != nil,
		)
		records = append(records, rec)
	}
	return records
}

func (r *Runner) processURL(ctx context.Context, pageURL string) models.PageRecord {
	rec := models.PageRecord{
		SourceURL:  pageURL,
		CapturedAt: r.now(),
	}

	if err := r.limiter.Wait(ctx); err != nil {
		rec.Status = models.StatusFailed
		rec.FailureReason = err.Error()
		return rec
	}

	var result *scraper.PageResult
	loadErr := r.retry.Do(ctx, func(ctx context.Context) error {
		res, err := r.loader.Load(ctx, pageURL)
		if err != nil {
			slog.Warn("page load attempt failed", "url", pageURL, "error", err)
			return err
		}
		result = res
		return nil
	})
	if loadErr != nil {
		rec.Status = models.StatusFailed
		rec.FailureReason = loadErr.Error()
		return rec
	}

	fields, name, err := r.reg.ExtractFrom(result.HTML, result.FinalURL)
	if err != nil {
		// A load that yielded unparseable HTML still counts as loaded.
		slog.Warn("field extraction failed", "url", pageURL, "error", err)
		rec.Title = result.Title
		rec.Status = statusFor(rec)
		return rec
	}

	rec.VendorMatched = name != "" && name != "generic"
	rec.Title = fields.Title
	rec.Price = fields.Price
	rec.Description = fields.Description
	if rec.Title == "" && !rec.VendorMatched {
		rec.Title = result.Title
	}

	rec.Thumbnail = r.normalizeThumbnail(ctx, fields, result.FinalURL)
	rec.Status = statusFor(rec)
	return rec
}

// normalizeThumbnail fails soft: a nil result leaves the thumbnail absent.
func (r *Runner) normalizeThumbnail(ctx context.Context, fields models.PartialFields, pageURL string) *models.NormalizedImage {
	switch {
	case fields.ImageURL != "":
		img, err := r.images.Normalize(ctx, fields.ImageURL, pageURL)
		if err != nil {
			slog.Warn("thumbnail normalization failed",
				"url", pageURL, "image", fields.ImageURL, "error", err)
			return nil
		}
		return img
	case len(fields.ImageCandidates) > 0:
		img, err := r.images.NormalizeLargest(ctx, fields.ImageCandidates, pageURL)
		if err != nil {
			slog.Warn("no usable image among candidates",
				"url", pageURL, "candidates", len(fields.ImageCandidates), "error", err)
			return nil
		}
		return img
	default:
		return nil
	}
}

// statusFor grades a loaded record. Title and thumbnail are the minimum
// viable fields for every page; price is additionally expected on
// vendor-matched pages. A missing description alone does not downgrade.
func statusFor(rec models.PageRecord) models.RecordStatus {
	if rec.Title == "" || rec.Thumbnail == nil {
		return models.StatusPartial
	}
	if rec.VendorMatched && rec.Price == "" {
		return models.StatusPartial
	}
	return models.StatusOK
}
