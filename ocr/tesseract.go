//go:build ocr

package ocr

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract wraps a gosseract client. A client holds one Tesseract API
// handle and is not safe for concurrent use; wrap it in a Shared.
type Tesseract struct {
	client *gosseract.Client
	cfg    TesseractConfig
}

// NewTesseract creates a Tesseract engine. The engine should be closed when
// no longer needed to release the native handle.
func NewTesseract(cfg TesseractConfig) (*Tesseract, error) {
	cfg = cfg.withDefaults()
	if !cfg.PageSegMode.Valid() {
		return nil, fmt.Errorf("page segmentation mode %d: %w", cfg.PageSegMode, ErrInvalidConfig)
	}

	client := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(cfg.Languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	for _, k := range slices.Sorted(maps.Keys(cfg.Variables)) {
		if err := client.SetVariable(gosseract.SettableVariable(k), cfg.Variables[k]); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set variable %s: %w", k, err)
		}
	}
	return &Tesseract{client: client, cfg: cfg}, nil
}

func (t *Tesseract) Name() string { return "tesseract" }

// Recognize runs Tesseract over in.Image and reads words and confidences
// from its hOCR output.
func (t *Tesseract) Recognize(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if t.client == nil {
		return Result{}, ErrClosed
	}
	data, err := encodePNG(in.Image)
	if err != nil {
		return Result{}, err
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return Result{}, fmt.Errorf("failed to set image: %w", err)
	}

	out, err := t.client.HOCRText()
	if err != nil {
		return Result{}, fmt.Errorf("OCR failed: %w", err)
	}
	res, err := ParseHOCR(strings.NewReader(out))
	if errors.Is(err, ErrNoPages) {
		return Result{InputID: in.ID}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("parse hOCR: %w", err)
	}
	res.InputID = in.ID
	return res, nil
}

// Close releases the Tesseract handle. It is safe to call more than once.
func (t *Tesseract) Close() error {
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
