// Package deedscan provides a fluent API for extracting the owner's address
// from a Taiwanese building transcript (建物登記謄本) PDF.
//
// Basic usage:
//
//	res, err := deedscan.Open("deed.pdf").Address(ctx)
//	if err != nil {
//	    // handle error
//	}
//	fmt.Println(res.Address, res.Provenance)
//
// With OCR for transcripts whose address is an image:
//
//	res, err := deedscan.Open("deed.pdf").
//	    Engine(engine).
//	    Corrections(glyph.Fix{From: "淼", To: "淡"}).
//	    Address(ctx)
//
// Batch runs, downloads and output files live in the batch, fetch and
// report packages; the deed package holds the extraction rules.
package deedscan

import (
	"github.com/tsawler/deedscan/reader"
)

// Open returns an Extractor for the PDF at filename. The file is read on
// the first terminal operation.
//
// Example:
//
//	res, err := deedscan.Open("deed.pdf").Address(ctx)
func Open(filename string) *Extractor {
	return &Extractor{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromBytes returns an Extractor for an in-memory PDF, such as a response
// body that was never written to disk.
func FromBytes(data []byte) *Extractor {
	return &Extractor{
		data:    data,
		options: defaultOptions(),
	}
}

// FromReader returns an Extractor for an already-parsed document.
//
// Example:
//
//	r, err := reader.Open("deed.pdf")
//	if err != nil {
//	    // handle error
//	}
//	texts, err := deedscan.FromReader(r).PageTexts()
func FromReader(r *reader.Reader) *Extractor {
	return &Extractor{
		reader:       r,
		readerOpened: true,
		options:      defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	count := deedscan.Must(deedscan.Open("deed.pdf").PageCount())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
