package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hypesilico/apicheck/internal/config"
	"github.com/hypesilico/apicheck/internal/fetch"
	"github.com/hypesilico/apicheck/internal/fixture"
	"github.com/hypesilico/apicheck/internal/history"
	"github.com/hypesilico/apicheck/internal/report"
	"github.com/hypesilico/apicheck/internal/runner"
	"github.com/hypesilico/apicheck/internal/validator"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	baseURL := flag.String("base-url", "", "API base URL (default http://localhost:8080)")
	expected := flag.String("expected", "", "expected data file (default validation/expected.json)")
	verbose := flag.Bool("v", false, "verbose output (show actual values on failure)")
	configPath := flag.String("config", "", "path to optional configuration file")
	format := flag.String("format", "", "report format: text or json")
	historyDB := flag.String("history-db", "", "record run results into this SQLite file")
	timeout := flag.Duration("timeout", 0, "per-request timeout (default 30s)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("apicheck %s\n", version)
		return 0
	}

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	// Flags override file values.
	if *baseURL != "" {
		cfg.BaseURL = strings.TrimRight(*baseURL, "/")
	}
	if *expected != "" {
		cfg.FixturePath = *expected
	}
	if *verbose {
		cfg.Verbose = true
	}
	if *format != "" {
		cfg.Format = *format
	}
	if *historyDB != "" {
		cfg.HistoryDB = *historyDB
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	logger := setupLogger(cfg.Logging)

	if cfg.Format == "text" {
		fmt.Printf("Hypesilico Validation\n")
		fmt.Printf("Base URL: %s\n", cfg.BaseURL)
		fmt.Printf("Expected file: %s\n\n", cfg.FixturePath)
	}

	fx, err := fixture.Load(cfg.FixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	client, err := fetch.New(cfg.BaseURL, fetch.Options{
		Timeout:   cfg.Timeout,
		ProxyURL:  cfg.ProxyURL,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.RateBurst,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	var rep report.Reporter
	if cfg.Format == "json" {
		rep = report.NewJSONReporter(os.Stdout, cfg.Verbose)
	} else {
		rep = report.NewConsoleReporter(os.Stdout, cfg.Verbose)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	summary, results := runner.New(validator.New(client, fx.TolerancePlaces), rep, logger).Run(ctx, fx)

	if cfg.HistoryDB != "" {
		recordHistory(ctx, logger, cfg, startedAt, summary, results)
	}

	if summary.AllPassed() {
		return 0
	}
	return 1
}

func recordHistory(ctx context.Context, logger *slog.Logger, cfg *config.Config, startedAt time.Time, summary report.Summary, results []validator.Result) {
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		logger.Error("open history db", "path", cfg.HistoryDB, "error", err)
		return
	}
	defer store.Close()

	runID, err := store.RecordRun(ctx, startedAt, cfg.BaseURL, summary, results)
	if err != nil {
		logger.Error("record run history", "error", err)
		return
	}
	logger.Debug("run recorded", "run_id", runID, "path", cfg.HistoryDB)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
