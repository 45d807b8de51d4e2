// Package imaging fetches a chosen page image and normalizes it into a
// consistent, embeddable payload: validated, flattened to RGB, bounded in
// dimensions, and re-encoded as JPEG.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"net/url"
	"time"

	// Registered decoders for the formats pages realistically serve.
	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/use-agent/pagedigest/config"
	"github.com/use-agent/pagedigest/fetch"
	"github.com/use-agent/pagedigest/models"
)

// Normalizer turns image references into NormalizedImage payloads.
type Normalizer struct {
	fetcher      fetch.Fetcher
	maxDim       int
	quality      int
	fetchTimeout time.Duration
}

// NewNormalizer builds a Normalizer on top of the given fetcher.
func NewNormalizer(fetcher fetch.Fetcher, cfg config.ImageConfig) *Normalizer {
	maxDim := cfg.MaxDimension
	if maxDim <= 0 {
		maxDim = 800
	}
	quality := cfg.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = 75
	}
	return &Normalizer{
		fetcher:      fetcher,
		maxDim:       maxDim,
		quality:      quality,
		fetchTimeout: cfg.FetchTimeout,
	}
}

// fetchCtx bounds a single download when a fetch timeout is configured.
func (n *Normalizer) fetchCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if n.fetchTimeout > 0 {
		return context.WithTimeout(ctx, n.fetchTimeout)
	}
	return context.WithCancel(ctx)
}

// Normalize resolves the image reference against the page URL, fetches the
// bytes, and normalizes them. Any failure is returned as a typed error so
// the pipeline can fail soft and leave the thumbnail absent.
func (n *Normalizer) Normalize(ctx context.Context, imageRef, pageURL string) (*models.NormalizedImage, error) {
	absURL, err := resolveRef(imageRef, pageURL)
	if err != nil {
		return nil, models.NewDigestError(models.ErrCodeImageFetch, "unresolvable image reference", err)
	}

	fctx, cancel := n.fetchCtx(ctx)
	defer cancel()
	data, err := n.fetcher.Fetch(fctx, absURL)
	if err != nil {
		return nil, models.NewDigestError(models.ErrCodeImageFetch, "image download failed", err)
	}

	return n.fromBytes(data, absURL)
}

// NormalizeLargest probes each candidate's decoded pixel dimensions and
// normalizes the one with the largest area. Candidates are tried in the
// given (document) order and only a strictly larger area displaces the
// current winner, so the first candidate wins ties. Candidates that fail
// to fetch or decode are skipped.
func (n *Normalizer) NormalizeLargest(ctx context.Context, refs []string, pageURL string) (*models.NormalizedImage, error) {
	var (
		bestData []byte
		bestURL  string
		bestArea int
	)

	for _, ref := range refs {
		absURL, err := resolveRef(ref, pageURL)
		if err != nil {
			continue
		}
		fctx, cancel := n.fetchCtx(ctx)
		data, err := n.fetcher.Fetch(fctx, absURL)
		cancel()
		if err != nil {
			slog.Debug("image candidate fetch failed", "url", absURL, "error", err)
			continue
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			continue
		}
		if area := cfg.Width * cfg.Height; area > bestArea {
			bestArea = area
			bestData = data
			bestURL = absURL
		}
	}

	if bestData == nil {
		return nil, models.NewDigestError(models.ErrCodeImageInvalid, "no decodable image candidate", nil)
	}
	return n.fromBytes(bestData, bestURL)
}

// fromBytes validates, flattens, bounds, and re-encodes a raw payload.
func (n *Normalizer) fromBytes(data []byte, sourceURL string) (*models.NormalizedImage, error) {
	if len(data) == 0 {
		return nil, models.NewDigestError(models.ErrCodeImageInvalid, "empty image payload", nil)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewDigestError(models.ErrCodeImageInvalid, "payload is not a decodable image", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, models.NewDigestError(models.ErrCodeImageInvalid,
			fmt.Sprintf("zero-size %s image", format), nil)
	}

	rgb := n.flattenAndScale(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: n.quality}); err != nil {
		return nil, models.NewDigestError(models.ErrCodeImageInvalid, "JPEG re-encode failed", err)
	}

	out := rgb.Bounds()
	return &models.NormalizedImage{
		Data:      buf.Bytes(),
		Width:     out.Dx(),
		Height:    out.Dy(),
		SourceURL: sourceURL,
	}, nil
}

// flattenAndScale draws the source onto a white RGBA canvas, downscaling
// with Catmull-Rom when the longer side exceeds the bound. Sources within
// the bound are never scaled up.
func (n *Normalizer) flattenAndScale(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if longer := max(w, h); longer > n.maxDim {
		scale := float64(n.maxDim) / float64(longer)
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// White backdrop so transparent PNGs do not turn black in JPEG.
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

// resolveRef makes an image reference absolute against the page URL and
// rejects non-HTTP schemes (data:, javascript:).
func resolveRef(imageRef, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	resolved, err := base.Parse(imageRef)
	if err != nil {
		return "", err
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("unsupported image scheme %q", resolved.Scheme)
	}
	return resolved.String(), nil
}
