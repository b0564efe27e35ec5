package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"

	"github.com/tsawler/deedscan/glyph"
	"github.com/tsawler/deedscan/imageproc"
	"github.com/tsawler/deedscan/ocr"
)

// Default configuration values.
const (
	AppName = "deedscan"

	// DefaultWorkers matches the five concurrent downloads the registry
	// tolerates without throttling.
	DefaultWorkers = 5

	DefaultDownloadDir = "pdfs"

	// DefaultTimeout bounds each transcript download.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent is the agent the document host accepts.
	DefaultUserAgent = "Mozilla/5.0"

	DefaultEngine = "tesseract"
)

// Config holds every deedscan setting. The zero value is not useful; use
// NewConfig.
type Config struct {
	Workers     int               `yaml:"workers"`
	Download    DownloadConfig    `yaml:"download"`
	OCR         OCRConfig         `yaml:"ocr"`
	Corrections CorrectionsConfig `yaml:"corrections"`
	Output      OutputConfig      `yaml:"output"`
	Verbose     bool              `yaml:"verbose"`
}

// DownloadConfig controls transcript downloads.
type DownloadConfig struct {
	Dir       string        `yaml:"dir"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	// Rate limits downloads per second across all workers. Zero disables
	// the limit.
	Rate float64 `yaml:"rate"`
	// InsecureSkipVerify disables TLS verification for hosts with broken
	// certificate chains.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// OCRConfig selects and tunes the OCR engine.
type OCRConfig struct {
	// Engine is tesseract, documentai or none.
	Engine     string               `yaml:"engine"`
	Tesseract  ocr.TesseractConfig  `yaml:"tesseract"`
	DocumentAI ocr.DocumentAIConfig `yaml:"documentai"`
	Preprocess imageproc.Options    `yaml:"preprocess"`
}

// CorrectionsConfig is the glyph table. Lists from a config file replace
// the defaults entirely.
type CorrectionsConfig struct {
	Fixes []glyph.Fix `yaml:"fixes"`
	Noise []string    `yaml:"noise"`
}

// OutputConfig selects the extra outputs written next to the CSV.
type OutputConfig struct {
	// SQLite is a database path; empty disables the database sink.
	SQLite string `yaml:"sqlite,omitempty"`
	// Markdown writes <identifier>_summary.md after a run.
	Markdown bool `yaml:"markdown"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Workers: DefaultWorkers,
		Download: DownloadConfig{
			Dir:       DefaultDownloadDir,
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		OCR: OCRConfig{
			Engine: DefaultEngine,
			Tesseract: ocr.TesseractConfig{
				Languages:   []string{ocr.DefaultLanguage},
				PageSegMode: ocr.PSM_SINGLE_LINE,
			},
			Preprocess: imageproc.DefaultOptions(),
		},
		Corrections: CorrectionsConfig{
			Fixes: slices.Clone(glyph.DefaultFixes),
			Noise: slices.Clone(glyph.DefaultNoise),
		},
	}
}

// Validate checks c and returns the first problem found.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Download.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Download.Rate < 0 {
		return ErrInvalidRate
	}
	switch c.OCR.Engine {
	case "tesseract":
		if !c.OCR.Tesseract.PageSegMode.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidPageSegMode, c.OCR.Tesseract.PageSegMode)
		}
	case "documentai":
		if err := c.OCR.DocumentAI.Validate(); err != nil {
			return err
		}
	case "none":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEngine, c.OCR.Engine)
	}
	if c.OCR.Preprocess.Scale < 1 {
		return ErrInvalidScale
	}
	for i, f := range c.Corrections.Fixes {
		if f.From == "" {
			return fmt.Errorf("%w: entry %d", ErrInvalidCorrection, i)
		}
	}
	return nil
}

// GlyphTable builds the correction table.
func (c *Config) GlyphTable() *glyph.Table {
	return glyph.NewTable(c.Corrections.Fixes, c.Corrections.Noise)
}

// OCROptions returns the options for ocr.New.
func (c *Config) OCROptions() ocr.Options {
	return ocr.Options{
		Engine:     c.OCR.Engine,
		Tesseract:  c.OCR.Tesseract,
		DocumentAI: c.OCR.DocumentAI,
	}
}

// XDGConfigFile is the per-user config file,
// $XDG_CONFIG_HOME/deedscan/config.yaml on Linux.
func XDGConfigFile() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// XDGDataDir is where the default database lives.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}
