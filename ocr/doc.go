// Package ocr recognizes text in the raster images of scanned deeds.
//
// Engines implement a small contract, one image in and one Result out, so
// the pipeline does not care whether recognition runs in a local Tesseract
// library or a remote service:
//
//   - Tesseract wraps the Tesseract library via gosseract. It is compiled
//     only with the "ocr" build tag, since it needs the Tesseract and
//     Leptonica headers at build time:
//
//     go build -tags ocr ./...
//
//     Without the tag, NewTesseract returns ErrOCRNotEnabled. Tesseract also
//     needs the chi_tra trained data. On Ubuntu/Debian:
//
//     apt-get install tesseract-ocr tesseract-ocr-chi-tra libtesseract-dev
//
//   - DocumentAI sends images to a Google Document AI OCR processor.
//
//   - Nop recognizes nothing, for runs that only want the text layer.
//
// Shared initializes an engine once and serializes calls into engines that
// are not safe for concurrent use.
package ocr
