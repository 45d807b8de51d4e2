package scraper

import (
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/pagedigest/config"
	"github.com/use-agent/pagedigest/models"
)

// Scraper owns the browser session for the whole run. The session is
// acquired once at startup and released once at the end; individual URLs
// reuse a single tab. It is not safe for concurrent use — the pipeline
// processes one URL at a time.
type Scraper struct {
	browser    *rod.Browser
	page       *rod.Page
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
	startTime  time.Time

	stealthInstalled bool
}

// New launches a headless browser and opens the reusable tab.
// A failure here is fatal for the run.
func New(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Scraper, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewDigestError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewDigestError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.MustClose()
		return nil, models.NewDigestError(
			models.ErrCodeBrowserCrash,
			"failed to open page",
			err,
		)
	}

	return &Scraper{
		browser:    browser,
		page:       page,
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		startTime:  time.Now(),
	}, nil
}

// Browser exposes the underlying browser so the report renderer can reuse
// the same process for PDF printing.
func (s *Scraper) Browser() *rod.Browser {
	return s.browser
}

// Close parks the tab and kills the browser process. Call on shutdown to
// prevent zombie Chrome processes.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down: closing browser",
		"uptime", time.Since(s.startTime).Round(time.Second),
	)
	if navErr := s.page.Navigate("about:blank"); navErr != nil {
		slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
	}
	s.browser.MustClose()
	slog.Info("scraper shutdown complete")
}
