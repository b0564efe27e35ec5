package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tsawler/deedscan/config"
	"github.com/tsawler/deedscan/deed"
	"github.com/tsawler/deedscan/fetch"
	"github.com/tsawler/deedscan/internal/log"
	"github.com/tsawler/deedscan/ocr"
)

// getVerboseFlag reads the persistent verbose flag.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, _ = cmd.Root().PersistentFlags().GetBool("verbose")
	}
	return verbose
}

// loadConfig loads the configuration file named by --config, or the first
// one found in the default locations, and applies the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicit, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.FindConfigFile(explicit))
	if err != nil {
		return nil, err
	}
	if getVerboseFlag(cmd) {
		cfg.Verbose = true
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("timeout") {
		cfg.Download.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("dir") {
		cfg.Download.Dir, _ = flags.GetString("dir")
	}
	if flags.Changed("rate") {
		cfg.Download.Rate, _ = flags.GetFloat64("rate")
	}
	if flags.Changed("engine") {
		cfg.OCR.Engine, _ = flags.GetString("engine")
	}
	if flags.Changed("db") {
		cfg.Output.SQLite, _ = flags.GetString("db")
	}
	if flags.Changed("markdown") {
		cfg.Output.Markdown, _ = flags.GetBool("markdown")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
}

// newEngine returns the configured OCR engine, created on first use. A
// binary built without Tesseract falls back to an engine that recognizes
// nothing, so image-only addresses come out as unrecognized.
func newEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) *ocr.Shared {
	opts := cfg.OCROptions()
	return ocr.NewShared(func() (ocr.Engine, error) {
		engine, err := ocr.New(ctx, opts)
		if errors.Is(err, ocr.ErrOCRNotEnabled) {
			logger.Warn("tesseract support not compiled in, image-only addresses will be unrecognized",
				"hint", "rebuild with -tags ocr")
			return ocr.Nop{}, nil
		}
		return engine, err
	})
}

func newPipeline(cfg *config.Config, engine ocr.Engine, logger *slog.Logger) *deed.Pipeline {
	return deed.NewPipeline(
		deed.WithEngine(engine),
		deed.WithGlyphTable(cfg.GlyphTable()),
		deed.WithPreprocess(cfg.OCR.Preprocess),
		deed.WithLogger(logger),
	)
}

func newDownloader(cfg *config.Config, logger *slog.Logger) *fetch.Downloader {
	return fetch.New(
		fetch.WithTimeout(cfg.Download.Timeout),
		fetch.WithUserAgent(cfg.Download.UserAgent),
		fetch.WithRateLimit(fetch.NewRateLimiter(cfg.Download.Rate)),
		fetch.WithInsecureSkipVerify(cfg.Download.InsecureSkipVerify),
		fetch.WithLogger(logger),
	)
}
