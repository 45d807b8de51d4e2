// Package cli provides the command-line interface: flag parsing,
// configuration loading, and the top-level run sequence.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/use-agent/pagedigest/config"
	"github.com/use-agent/pagedigest/digest"
	"github.com/use-agent/pagedigest/extractor"
	"github.com/use-agent/pagedigest/fetch"
	"github.com/use-agent/pagedigest/imaging"
	"github.com/use-agent/pagedigest/report"
	"github.com/use-agent/pagedigest/scraper"
)

var rootCmd = &cobra.Command{
	Use:   "pagedigest [url-list-file]",
	Short: "Compile a PDF digest of web page metadata from a URL list",
	Long: `pagedigest loads each URL from a newline-delimited list in a headless
browser, extracts the page title, a preview image, and (for recognized
e-commerce product pages) price and description, and compiles one
paginated PDF report with a section per URL, in input order.`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	f := rootCmd.Flags()
	f.StringP("output", "o", "", "path of the generated PDF report")
	f.Int("max-attempts", 0, "page load attempts per URL")
	f.Duration("retry-delay", 0, "delay before the first retry")
	f.Duration("load-timeout", 0, "deadline for a single page load attempt")
	f.Bool("headless", true, "run the browser headless")
	f.Bool("no-sandbox", false, "disable the Chrome sandbox (Docker)")
	f.String("browser-bin", "", "Chromium binary override")
	f.Bool("stealth", true, "mask browser automation fingerprints")
	f.Float64("page-rate", 0, "page loads per second (0 = unpaced)")
	f.Int("image-max-dim", 0, "max thumbnail dimension in pixels")
	f.String("log-level", "", "log level: debug, info, warn, error")
	f.String("log-format", "", "log format: text or json")
}

// loadConfig merges env defaults with flag overrides, flags winning.
func loadConfig(cmd *cobra.Command, args []string) *config.Config {
	cfg := config.Load()

	v := viper.New()
	v.SetEnvPrefix("PAGEDIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(cmd.Flags())

	if len(args) > 0 {
		cfg.Input = args[0]
	}
	if s := v.GetString("output"); s != "" {
		cfg.Output = s
	}
	if n := v.GetInt("max-attempts"); n > 0 {
		cfg.Retry.MaxAttempts = n
	}
	if d := v.GetDuration("retry-delay"); d > 0 {
		cfg.Retry.Delay = d
	}
	if d := v.GetDuration("load-timeout"); d > 0 {
		cfg.Scraper.LoadTimeout = d
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = v.GetBool("headless")
	}
	if cmd.Flags().Changed("no-sandbox") {
		cfg.Browser.NoSandbox = v.GetBool("no-sandbox")
	}
	if s := v.GetString("browser-bin"); s != "" {
		cfg.Browser.BrowserBin = s
	}
	if cmd.Flags().Changed("stealth") {
		cfg.Scraper.Stealth = v.GetBool("stealth")
	}
	if r := v.GetFloat64("page-rate"); r > 0 {
		cfg.Scraper.PageRatePerSecond = r
	}
	if n := v.GetInt("image-max-dim"); n > 0 {
		cfg.Image.MaxDimension = n
	}
	if s := v.GetString("log-level"); s != "" {
		cfg.Log.Level = s
	}
	if s := v.GetString("log-format"); s != "" {
		cfg.Log.Format = s
	}
	return cfg
}

// run is the whole batch: read list, launch browser, capture each URL,
// compile the report. Only browser startup and the final write abort it.
func run(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd, args)
	initLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	urls, err := digest.ReadURLList(cfg.Input)
	if err != nil {
		slog.Error("cannot read URL list", "path", cfg.Input, "error", err)
		return err
	}
	slog.Info("pagedigest starting",
		"input", cfg.Input,
		"output", cfg.Output,
		"urls", len(urls),
		"maxAttempts", cfg.Retry.MaxAttempts,
	)

	sc, err := scraper.New(cfg.Browser, cfg.Scraper)
	if err != nil {
		slog.Error("failed to initialise browser", "error", err)
		return err
	}
	defer sc.Close()

	fetcher := fetch.NewClient(
		fetch.WithUserAgent(cfg.Scraper.UserAgent),
		fetch.WithMaxBytes(cfg.Image.MaxFetchBytes),
	)
	runner := digest.NewRunner(
		sc,
		extractor.DefaultRegistry(),
		imaging.NewNormalizer(fetcher, cfg.Image),
		scraper.PolicyFromConfig(cfg.Retry),
		cfg.Scraper.PageRatePerSecond,
	)

	start := time.Now()
	records := runner.Run(ctx, urls)

	compiler := report.NewCompiler(report.NewChromeRenderer(sc.Browser()), cfg.Report)
	if err := compiler.WriteFile(ctx, records, cfg.Output); err != nil {
		slog.Error("failed to write report", "path", cfg.Output, "error", err)
		return err
	}

	slog.Info("report written",
		"path", cfg.Output,
		"entries", len(records),
		"elapsed", time.Since(start).Round(time.Second),
	)
	return nil
}

// initLogger configures the process-wide slog default.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
