package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Input is the newline-delimited URL list file.
	Input string // default: "urls.txt"

	// Output is the path of the generated PDF report.
	Output string // default: "webpage_details.pdf"

	Browser BrowserConfig
	Retry   RetryConfig
	Scraper ScraperConfig
	Image   ImageConfig
	Report  ReportConfig
	Log     LogConfig
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// RetryConfig controls the page-load retry policy.
type RetryConfig struct {
	// MaxAttempts is the total number of load attempts per URL.
	MaxAttempts int // default: 3

	// Delay is the wait before the first retry.
	Delay time.Duration // default: 1s

	// MaxDelay caps the backoff between attempts.
	MaxDelay time.Duration // default: 5s
}

// ScraperConfig controls per-page scraping behavior.
type ScraperConfig struct {
	// LoadTimeout is the deadline for a single load attempt.
	LoadTimeout time.Duration // default: 30s

	// Stealth enables anti-bot-detection evasions.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types the page hijack drops.
	// Images stay unblocked; thumbnails are fetched separately anyway but
	// some pages only set og:image dimensions after images load.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string

	// PageRatePerSecond paces page loads across the URL list.
	PageRatePerSecond float64 // default: 1

	// UserAgent is sent on direct HTTP fetches (image downloads).
	UserAgent string
}

// ImageConfig controls thumbnail normalization.
type ImageConfig struct {
	// MaxDimension bounds the longer side of the normalized thumbnail.
	// Sources below the bound are never scaled up.
	MaxDimension int // default: 800

	// JPEGQuality is the re-encode quality.
	JPEGQuality int // default: 75

	// MaxFetchBytes caps the downloaded payload size.
	MaxFetchBytes int64 // default: 10 MiB

	// FetchTimeout is the deadline for a single image download.
	FetchTimeout time.Duration // default: 15s
}

// ReportConfig controls PDF layout.
type ReportConfig struct {
	// PaperSize is the CSS @page size keyword.
	PaperSize string // default: "A4"

	// Footer is the per-page footer text; empty disables it.
	Footer string // default: "Generated by pagedigest"

	// RenderTimeout is the deadline for printing the report to PDF.
	RenderTimeout time.Duration // default: 60s
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
// CLI flags (see the cli package) override these values.
func Load() *Config {
	return &Config{
		Input:  envOr("PAGEDIGEST_INPUT", "urls.txt"),
		Output: envOr("PAGEDIGEST_OUTPUT", "webpage_details.pdf"),
		Browser: BrowserConfig{
			Headless:   envBoolOr("PAGEDIGEST_HEADLESS", true),
			NoSandbox:  envBoolOr("PAGEDIGEST_NO_SANDBOX", false),
			BrowserBin: os.Getenv("PAGEDIGEST_BROWSER_BIN"),
		},
		Retry: RetryConfig{
			MaxAttempts: envIntOr("PAGEDIGEST_MAX_ATTEMPTS", 3),
			Delay:       envDurationOr("PAGEDIGEST_RETRY_DELAY", time.Second),
			MaxDelay:    envDurationOr("PAGEDIGEST_RETRY_MAX_DELAY", 5*time.Second),
		},
		Scraper: ScraperConfig{
			LoadTimeout:          envDurationOr("PAGEDIGEST_LOAD_TIMEOUT", 30*time.Second),
			Stealth:              envBoolOr("PAGEDIGEST_STEALTH", true),
			BlockedResourceTypes: []string{"Font", "Media"},
			PageRatePerSecond:    envFloatOr("PAGEDIGEST_PAGE_RATE", 1.0),
			UserAgent:            envOr("PAGEDIGEST_USER_AGENT", ""),
		},
		Image: ImageConfig{
			MaxDimension:  envIntOr("PAGEDIGEST_IMAGE_MAX_DIM", 800),
			JPEGQuality:   envIntOr("PAGEDIGEST_JPEG_QUALITY", 75),
			MaxFetchBytes: 10 * 1024 * 1024,
			FetchTimeout:  envDurationOr("PAGEDIGEST_IMAGE_TIMEOUT", 15*time.Second),
		},
		Report: ReportConfig{
			PaperSize:     envOr("PAGEDIGEST_PAPER", "A4"),
			Footer:        envOr("PAGEDIGEST_FOOTER", "Generated by pagedigest"),
			RenderTimeout: envDurationOr("PAGEDIGEST_RENDER_TIMEOUT", 60*time.Second),
		},
		Log: LogConfig{
			Level:  envOr("PAGEDIGEST_LOG_LEVEL", "info"),
			Format: envOr("PAGEDIGEST_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
