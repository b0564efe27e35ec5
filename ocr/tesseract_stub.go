//go:build !ocr

package ocr

import "context"

// Tesseract is a stub used when the "ocr" build tag is not set. It cannot be
// constructed; its methods exist so callers compile either way.
type Tesseract struct{}

// NewTesseract returns ErrOCRNotEnabled. To enable Tesseract, rebuild with:
// go build -tags ocr
func NewTesseract(cfg TesseractConfig) (*Tesseract, error) {
	return nil, ErrOCRNotEnabled
}

func (t *Tesseract) Name() string { return "tesseract" }

// Recognize returns ErrOCRNotEnabled.
func (t *Tesseract) Recognize(ctx context.Context, in Input) (Result, error) {
	return Result{}, ErrOCRNotEnabled
}

// Close is a no-op. It is safe to call on a nil engine.
func (t *Tesseract) Close() error {
	return nil
}
