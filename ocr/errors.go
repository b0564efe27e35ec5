package ocr

import "errors"

var (
	// ErrOCRNotEnabled is returned by NewTesseract when Tesseract support was
	// not compiled in. Rebuild with -tags ocr to enable it.
	ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

	// ErrUnknownEngine is returned by New for an engine name it does not know.
	ErrUnknownEngine = errors.New("unknown OCR engine")

	// ErrClosed is returned when an engine is used after Close.
	ErrClosed = errors.New("OCR engine closed")

	// ErrInvalidConfig is returned for an engine configuration that cannot
	// work, such as a Document AI config without a processor.
	ErrInvalidConfig = errors.New("invalid OCR engine configuration")

	// ErrNoPages is returned when an hOCR document has no ocr_page element.
	ErrNoPages = errors.New("no ocr_page elements in hOCR data")
)
