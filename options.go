package deedscan

import (
	"log/slog"
	"slices"

	"github.com/tsawler/deedscan/glyph"
	"github.com/tsawler/deedscan/imageproc"
	"github.com/tsawler/deedscan/ocr"
)

// ExtractOptions holds configuration for address extraction.
type ExtractOptions struct {
	engine ocr.Engine

	// Correction table. table replaces the defaults when set; fixes are
	// added in front of the defaults otherwise.
	table *glyph.Table
	fixes []glyph.Fix

	preprocess imageproc.Options
	logger     *slog.Logger
}

// defaultOptions returns the default extraction options.
func defaultOptions() ExtractOptions {
	return ExtractOptions{
		engine:     nil, // nil means ocr.Nop
		preprocess: imageproc.DefaultOptions(),
	}
}

// clone creates a deep copy of ExtractOptions.
func (o ExtractOptions) clone() ExtractOptions {
	newOpts := o
	newOpts.fixes = slices.Clone(o.fixes)
	return newOpts
}

// glyphTable builds the table the options describe.
func (o ExtractOptions) glyphTable() *glyph.Table {
	if o.table != nil {
		return o.table
	}
	if len(o.fixes) == 0 {
		return glyph.Default()
	}
	// Equal-length entries apply in order, so added fixes win over the
	// defaults they collide with.
	return glyph.NewTable(append(slices.Clone(o.fixes), glyph.DefaultFixes...), glyph.DefaultNoise)
}
