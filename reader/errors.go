package reader

import "errors"

var (
	// ErrNotPDF is returned when the data has no %PDF- header.
	ErrNotPDF = errors.New("not a PDF file")
	// ErrEncrypted is returned for documents with an /Encrypt dictionary.
	ErrEncrypted = errors.New("encrypted PDF files are not supported")
	// ErrPageRange is returned for a page index outside the document.
	ErrPageRange = errors.New("page index out of range")
	// ErrUnsupportedImage is returned by PageImage.Decode for codecs and
	// colour spaces it cannot decode.
	ErrUnsupportedImage = errors.New("unsupported image")
	// ErrImageTooLarge is returned by PageImage.Decode for images whose
	// declared size exceeds MaxImagePixels.
	ErrImageTooLarge = errors.New("image too large")
)
