package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/use-agent/pagedigest/config"
	"github.com/use-agent/pagedigest/fetch"
	"github.com/use-agent/pagedigest/models"
)

// pngBytes renders a solid-color PNG of the given size.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture png: %v", err)
	}
	return buf.Bytes()
}

func imageServer(t *testing.T, responses map[string][]byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestNormalizer(maxDim int) *Normalizer {
	return NewNormalizer(fetch.NewClient(), config.ImageConfig{
		MaxDimension: maxDim,
		JPEGQuality:  75,
	})
}

func TestNormalize_ValidPNGBecomesJPEG(t *testing.T) {
	ts := imageServer(t, map[string][]byte{"/img.png": pngBytes(t, 100, 60)})

	n := newTestNormalizer(800)
	got, err := n.Normalize(context.Background(), ts.URL+"/img.png", ts.URL)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Width != 100 || got.Height != 60 {
		t.Errorf("dimensions = %dx%d, want 100x60 (no upscaling)", got.Width, got.Height)
	}
	if _, err := jpeg.Decode(bytes.NewReader(got.Data)); err != nil {
		t.Errorf("payload is not valid JPEG: %v", err)
	}
}

func TestNormalize_DownscalesToBound(t *testing.T) {
	ts := imageServer(t, map[string][]byte{"/big.png": pngBytes(t, 1600, 800)})

	n := newTestNormalizer(800)
	got, err := n.Normalize(context.Background(), "/big.png", ts.URL+"/page")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Width != 800 || got.Height != 400 {
		t.Errorf("dimensions = %dx%d, want 800x400 (aspect preserved)", got.Width, got.Height)
	}
}

func TestNormalize_RelativeRefResolvedAgainstPage(t *testing.T) {
	ts := imageServer(t, map[string][]byte{"/assets/thumb.png": pngBytes(t, 10, 10)})

	n := newTestNormalizer(800)
	got, err := n.Normalize(context.Background(), "assets/thumb.png", ts.URL+"/articles/1")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.SourceURL != ts.URL+"/assets/thumb.png" {
		t.Errorf("SourceURL = %q", got.SourceURL)
	}
}

func TestNormalize_NonImageBytesRejected(t *testing.T) {
	ts := imageServer(t, map[string][]byte{
		"/error.jpg": []byte("<html><body>404 page dressed as an image</body></html>"),
	})

	n := newTestNormalizer(800)
	_, err := n.Normalize(context.Background(), ts.URL+"/error.jpg", ts.URL)
	if err == nil {
		t.Fatal("expected validation error for non-image payload")
	}
	var de *models.DigestError
	if !errors.As(err, &de) || de.Code != models.ErrCodeImageInvalid {
		t.Errorf("error = %v, want code %s", err, models.ErrCodeImageInvalid)
	}
}

func TestNormalize_FetchFailureIsTyped(t *testing.T) {
	ts := imageServer(t, nil)

	n := newTestNormalizer(800)
	_, err := n.Normalize(context.Background(), ts.URL+"/missing.png", ts.URL)
	var de *models.DigestError
	if !errors.As(err, &de) || de.Code != models.ErrCodeImageFetch {
		t.Errorf("error = %v, want code %s", err, models.ErrCodeImageFetch)
	}
}

func TestNormalize_RejectsNonHTTPSchemes(t *testing.T) {
	n := newTestNormalizer(800)
	_, err := n.Normalize(context.Background(), "data:image/png;base64,AAAA", "https://example.org")
	if err == nil {
		t.Fatal("expected error for data: scheme")
	}
}

func TestNormalizeLargest_PicksLargerDecodedImage(t *testing.T) {
	ts := imageServer(t, map[string][]byte{
		"/small.png": pngBytes(t, 50, 50),
		"/big.png":   pngBytes(t, 100, 100),
	})

	n := newTestNormalizer(800)
	got, err := n.NormalizeLargest(context.Background(),
		[]string{"/small.png", "/big.png"}, ts.URL+"/page")
	if err != nil {
		t.Fatalf("NormalizeLargest: %v", err)
	}
	if got.Width != 100 || got.Height != 100 {
		t.Errorf("picked %dx%d, want the 100x100 image", got.Width, got.Height)
	}
}

func TestNormalizeLargest_FirstWinsOnTie(t *testing.T) {
	ts := imageServer(t, map[string][]byte{
		"/a.png": pngBytes(t, 40, 40),
		"/b.png": pngBytes(t, 40, 40),
	})

	n := newTestNormalizer(800)
	got, err := n.NormalizeLargest(context.Background(),
		[]string{"/a.png", "/b.png"}, ts.URL+"/page")
	if err != nil {
		t.Fatalf("NormalizeLargest: %v", err)
	}
	if got.SourceURL != ts.URL+"/a.png" {
		t.Errorf("SourceURL = %q, want first candidate on tie", got.SourceURL)
	}
}

func TestNormalizeLargest_SkipsUndecodableCandidates(t *testing.T) {
	ts := imageServer(t, map[string][]byte{
		"/broken.png": []byte("not an image"),
		"/ok.png":     pngBytes(t, 20, 20),
	})

	n := newTestNormalizer(800)
	got, err := n.NormalizeLargest(context.Background(),
		[]string{"/broken.png", "/ok.png"}, ts.URL+"/page")
	if err != nil {
		t.Fatalf("NormalizeLargest: %v", err)
	}
	if got.SourceURL != ts.URL+"/ok.png" {
		t.Errorf("SourceURL = %q", got.SourceURL)
	}
}

func TestNormalizeLargest_AllBadYieldsTypedError(t *testing.T) {
	ts := imageServer(t, map[string][]byte{"/x.png": []byte("nope")})

	n := newTestNormalizer(800)
	_, err := n.NormalizeLargest(context.Background(), []string{"/x.png"}, ts.URL+"/page")
	var de *models.DigestError
	if !errors.As(err, &de) || de.Code != models.ErrCodeImageInvalid {
		t.Errorf("error = %v, want code %s", err, models.ErrCodeImageInvalid)
	}
}
