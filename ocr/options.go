package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
)

// DefaultLanguage is the Tesseract language used for deed scans.
const DefaultLanguage = "chi_tra"

// TesseractConfig configures a Tesseract engine.
type TesseractConfig struct {
	// Languages are Tesseract trained data names. Defaults to chi_tra.
	Languages []string `yaml:"languages"`
	// PageSegMode defaults to PSM_SINGLE_LINE: the address is one line.
	PageSegMode PageSegMode `yaml:"psm"`
	// Variables are passed to SetVariable, e.g. tessedit_char_whitelist.
	Variables map[string]string `yaml:"variables,omitempty"`
	// TessdataPrefix overrides the trained data directory.
	TessdataPrefix string `yaml:"tessdata_prefix,omitempty"`
}

func (c TesseractConfig) withDefaults() TesseractConfig {
	if len(c.Languages) == 0 {
		c.Languages = []string{DefaultLanguage}
	}
	if c.PageSegMode == 0 {
		c.PageSegMode = PSM_SINGLE_LINE
	}
	return c
}

// Options selects and configures an engine for New.
type Options struct {
	// Engine is "tesseract", "documentai" or "none".
	Engine     string
	Tesseract  TesseractConfig
	DocumentAI DocumentAIConfig
}

// New constructs the engine named by opts.Engine.
func New(ctx context.Context, opts Options) (Engine, error) {
	switch opts.Engine {
	case "tesseract", "":
		t, err := NewTesseract(opts.Tesseract)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "documentai":
		d, err := NewDocumentAI(ctx, opts.DocumentAI)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "none":
		return Nop{}, nil
	}
	return nil, fmt.Errorf("%q: %w", opts.Engine, ErrUnknownEngine)
}

func encodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("no image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
