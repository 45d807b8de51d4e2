package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/pagedigest/models"
)

// PageResult is the outcome of a successful page load.
type PageResult struct {
	// HTML is the rendered page HTML after the wait strategy settled.
	HTML string

	// Title is document.title at extraction time.
	Title string

	// FinalURL is window.location.href after redirects.
	FinalURL string
}

// Load drives the browser tab to the given URL and returns the rendered
// page. One attempt only — callers wrap it in a RetryPolicy.
//
// Lifecycle:
//
//  1. Timeout guard    – hard deadline on the whole attempt
//  2. Stealth          – mask navigator.webdriver etc. (before navigation!)
//  3. Headers          – Google Referer unless the page is the referrer
//  4. Hijack mount     – drop fonts/media (before navigation!)
//  5. Navigate + wait  – DOM stable
//  6. Extract          – page.HTML() + document.title + final URL
//
// Steps 2-4 must precede step 5: stealth JS and resource blocking only take
// effect for navigations that happen after they are installed.
func (s *Scraper) Load(ctx context.Context, pageURL string) (*PageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.scraperCfg.LoadTimeout)
	defer cancel()

	// The tab is reused across the whole URL list, so the stealth script
	// only needs to be installed once.
	if s.scraperCfg.Stealth && !s.stealthInstalled {
		if _, evalErr := s.page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		} else {
			s.stealthInstalled = true
		}
	}

	if u, parseErr := url.Parse(pageURL); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			}),
		}.Call(s.page)
	}

	router := setupHijack(s.page, s.scraperCfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := s.page.Context(ctx)

	if navErr := p.Navigate(pageURL); navErr != nil {
		return nil, categorizeError(navErr, "navigation to target URL failed")
	}

	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		if ctx.Err() != nil {
			return nil, categorizeError(ctx.Err(), "page did not settle in time")
		}
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}

	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract page HTML")
	}

	title := evalStringOrEmpty(p, `() => document.title`)
	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = pageURL
	}

	return &PageResult{
		HTML:     rawHTML,
		Title:    title,
		FinalURL: finalURL,
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed DigestErrors so the pipeline
// can distinguish timeouts from navigation failures in the record.
func categorizeError(err error, msg string) *models.DigestError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewDigestError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewDigestError(models.ErrCodeTimeout, "load canceled", err)
	default:
		return models.NewDigestError(models.ErrCodeLoadFailed, msg, err)
	}
}
