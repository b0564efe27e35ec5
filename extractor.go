package deedscan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tsawler/deedscan/deed"
	"github.com/tsawler/deedscan/glyph"
	"github.com/tsawler/deedscan/imageproc"
	"github.com/tsawler/deedscan/ocr"
	"github.com/tsawler/deedscan/reader"
)

// Extractor provides a fluent interface for extracting the address from a
// transcript. Each configuration method returns a new Extractor instance,
// making it safe to branch a base configuration and allowing method
// chaining.
type Extractor struct {
	// Source
	filename string
	data     []byte

	reader       *reader.Reader
	readerOpened bool

	options ExtractOptions
}

// clone creates a shallow copy of the Extractor with a deep copy of options.
func (e *Extractor) clone() *Extractor {
	return &Extractor{
		filename:     e.filename,
		data:         e.data,
		reader:       e.reader,
		readerOpened: e.readerOpened,
		options:      e.options.clone(),
	}
}

// ensureReader parses the document if not already done. Failures wrap
// deed.ErrOpen.
func (e *Extractor) ensureReader() error {
	if e.readerOpened {
		return nil
	}

	var r *reader.Reader
	var err error
	switch {
	case e.data != nil:
		r, err = reader.NewReader(e.data)
	case e.filename != "":
		r, err = reader.Open(e.filename)
		if err != nil {
			err = fmt.Errorf("%s: %w", e.filename, err)
		}
	default:
		err = errors.New("no document specified")
	}
	if err != nil {
		return fmt.Errorf("%w: %w", deed.ErrOpen, err)
	}

	e.reader = r
	e.readerOpened = true
	return nil
}

// Close releases the parsed document. It is safe to call Close multiple
// times; a later terminal operation parses the document again.
func (e *Extractor) Close() error {
	if e.filename != "" || e.data != nil {
		e.reader = nil
		e.readerOpened = false
	}
	return nil
}

// ============================================================================
// Configuration Methods (return new Extractor instance)
// ============================================================================

// Engine sets the OCR engine used when the address is an image. Without
// one, such addresses come back unrecognized. Engines that are not safe
// for concurrent use should be wrapped with ocr.SharedEngine when one
// engine serves several extractors.
//
// Example:
//
//	res, err := deedscan.Open("deed.pdf").Engine(tess).Address(ctx)
func (e *Extractor) Engine(engine ocr.Engine) *Extractor {
	newExt := e.clone()
	newExt.options.engine = engine
	return newExt
}

// Corrections adds OCR fixes to the default correction table. Added fixes
// take precedence over defaults of the same length. Multiple calls are
// cumulative.
//
// Example:
//
//	res, err := deedscan.Open("deed.pdf").
//	    Engine(tess).
//	    Corrections(glyph.Fix{From: "淡:水", To: "淡水"}).
//	    Address(ctx)
func (e *Extractor) Corrections(fixes ...glyph.Fix) *Extractor {
	newExt := e.clone()
	newExt.options.fixes = append(newExt.options.fixes, fixes...)
	return newExt
}

// GlyphTable replaces the correction table entirely, discarding fixes
// added with Corrections.
func (e *Extractor) GlyphTable(t *glyph.Table) *Extractor {
	newExt := e.clone()
	newExt.options.table = t
	newExt.options.fixes = nil
	return newExt
}

// Preprocess sets the image preprocessing applied before non-neural OCR
// engines.
func (e *Extractor) Preprocess(opts imageproc.Options) *Extractor {
	newExt := e.clone()
	newExt.options.preprocess = opts
	return newExt
}

// Logger sets the logger for OCR diagnostics.
func (e *Extractor) Logger(l *slog.Logger) *Extractor {
	newExt := e.clone()
	newExt.options.logger = l
	return newExt
}

// ============================================================================
// Terminal Operations
// ============================================================================

// Address extracts the owner's address. A document that cannot be parsed
// returns a failure result together with an error wrapping deed.ErrOpen;
// OCR failures are reported in the result only.
//
// Example:
//
//	res, err := deedscan.Open("deed.pdf").Address(ctx)
func (e *Extractor) Address(ctx context.Context) (deed.Result, error) {
	if err := e.ensureReader(); err != nil {
		return deed.Failed(err), err
	}
	return e.pipeline().ProcessReader(ctx, e.reader)
}

// pipeline builds a deed.Pipeline from the options.
func (e *Extractor) pipeline() *deed.Pipeline {
	return deed.NewPipeline(
		deed.WithEngine(e.options.engine),
		deed.WithGlyphTable(e.options.glyphTable()),
		deed.WithPreprocess(e.options.preprocess),
		deed.WithLogger(e.options.logger),
	)
}

// PageCount returns the number of pages in the document.
func (e *Extractor) PageCount() (int, error) {
	if err := e.ensureReader(); err != nil {
		return 0, err
	}
	return e.reader.PageCount(), nil
}

// PageTexts returns the text layer of every page. A page whose content
// cannot be decoded yields an empty string.
func (e *Extractor) PageTexts() ([]string, error) {
	if err := e.ensureReader(); err != nil {
		return nil, err
	}
	texts := make([]string, e.reader.PageCount())
	for i := range texts {
		if text, err := e.reader.PageText(i); err == nil {
			texts[i] = text
		}
	}
	return texts, nil
}

// TextField looks for the address in the text layer only, without OCR.
// It returns the field and the 0-based page it was read from.
//
// Example:
//
//	field, page, err := deedscan.Open("deed.pdf").TextField()
//	if err == nil && field.Anchored && field.Value == "" {
//	    // the address is an image on page
//	}
func (e *Extractor) TextField() (deed.Field, int, error) {
	texts, err := e.PageTexts()
	if err != nil {
		return deed.Field{}, -1, err
	}
	page := deed.LocatePage(texts)
	if page < 0 {
		return deed.Field{}, -1, fmt.Errorf("%w: %w", deed.ErrOpen, deed.ErrNoPages)
	}
	return deed.ExtractField(texts[page]), page, nil
}
