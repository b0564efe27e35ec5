package deed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tsawler/deedscan/glyph"
	"github.com/tsawler/deedscan/imageproc"
	"github.com/tsawler/deedscan/ocr"
	"github.com/tsawler/deedscan/reader"
)

// Provenance records how a Result's address was obtained.
type Provenance int

const (
	ProvenanceText Provenance = iota
	ProvenanceOCR
	ProvenanceRedacted
	ProvenanceUnrecognized
	ProvenanceFailed
)

func (p Provenance) String() string {
	switch p {
	case ProvenanceText:
		return "text"
	case ProvenanceOCR:
		return "ocr"
	case ProvenanceRedacted:
		return "redacted"
	case ProvenanceUnrecognized:
		return "unrecognized"
	case ProvenanceFailed:
		return "failed"
	}
	return fmt.Sprintf("Provenance(%d)", int(p))
}

// Result is the address extracted from one document.
type Result struct {
	// Address is the extracted text or a Sentinel* placeholder. It is never
	// empty.
	Address    string
	Provenance Provenance
	// Page is the 0-based index of the page that was searched, or -1.
	Page int
	// OCRText is the recognized text before glyph correction.
	OCRText string
	// Err is the cause of a ProvenanceFailed result.
	Err error
}

// Failed returns a failure Result caused by err.
func Failed(err error) Result {
	return Result{Address: SentinelFailed, Provenance: ProvenanceFailed, Page: -1, Err: err}
}

// Pipeline extracts addresses from deed PDFs. It is safe for concurrent use
// when its engine is; wrap engines in an ocr.Shared otherwise.
type Pipeline struct {
	engine     ocr.Engine
	glyphs     *glyph.Table
	preprocess imageproc.Options
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEngine sets the OCR engine used for image-only addresses. The default
// is ocr.Nop, which leaves those addresses unrecognized.
func WithEngine(e ocr.Engine) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.engine = e
		}
	}
}

// WithGlyphTable replaces the default correction table.
func WithGlyphTable(t *glyph.Table) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.glyphs = t
		}
	}
}

// WithPreprocess sets the image preprocessing applied before non-neural
// engines.
func WithPreprocess(opts imageproc.Options) Option {
	return func(p *Pipeline) { p.preprocess = opts }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline returns a Pipeline with the default glyph table and
// preprocessing.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:     ocr.Nop{},
		glyphs:     glyph.Default(),
		preprocess: imageproc.DefaultOptions(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process opens the PDF at path and extracts its address. Open failures
// return a failure Result together with an error wrapping ErrOpen; every
// later failure is reported in Result.Err only. A canceled ctx is returned
// as the error as well.
func (p *Pipeline) Process(ctx context.Context, path string) (Result, error) {
	r, err := reader.Open(path)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
		return Failed(err), err
	}
	return p.ProcessReader(ctx, r)
}

// ProcessBytes extracts the address from an in-memory PDF.
func (p *Pipeline) ProcessBytes(ctx context.Context, data []byte) (Result, error) {
	r, err := reader.NewReader(data)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrOpen, err)
		return Failed(err), err
	}
	return p.ProcessReader(ctx, r)
}

// ProcessReader extracts the address from an open document.
func (p *Pipeline) ProcessReader(ctx context.Context, r *reader.Reader) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Failed(err), err
	}
	texts := make([]string, r.PageCount())
	for i := range texts {
		text, err := r.PageText(i)
		if err != nil {
			p.logger.Debug("page text unreadable", "page", i, "error", err)
			continue
		}
		texts[i] = text
	}

	page := LocatePage(texts)
	if page < 0 {
		err := fmt.Errorf("%w: %w", ErrOpen, ErrNoPages)
		return Failed(err), err
	}

	field := ExtractField(texts[page])
	if field.Value != "" {
		return Result{Address: field.Value, Provenance: ProvenanceText, Page: page}, nil
	}

	res := p.recognize(ctx, r, page, field.Anchored)
	if res.Err != nil && ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}

// recognize runs the OCR path over the images of page.
func (p *Pipeline) recognize(ctx context.Context, r *reader.Reader, page int, anchored bool) Result {
	fail := func(err error) Result {
		p.logger.Warn("OCR fallback failed", "page", page, "error", err)
		res := Failed(err)
		res.Page = page
		return res
	}

	images, err := r.PageImages(page)
	if err != nil {
		return fail(fmt.Errorf("list images: %w", err))
	}

	neural := ocr.IsNeural(p.engine)
	var parts []string
	for _, info := range images {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		img, err := info.Decode()
		if errors.Is(err, reader.ErrUnsupportedImage) {
			// Logos and stamps in JPEG 2000 or JBIG2 carry no address.
			p.logger.Debug("skipping image", "page", page, "image", info.Name, "error", err)
			continue
		}
		if err != nil {
			return fail(fmt.Errorf("decode %s: %w", info.Name, err))
		}
		if !neural {
			img = imageproc.Preprocess(img, p.preprocess)
		}
		out, err := p.engine.Recognize(ctx, ocr.Input{
			ID:    fmt.Sprintf("page-%d-%s", page+1, info.Name),
			Image: img,
		})
		if err != nil {
			return fail(fmt.Errorf("recognize %s with %s: %w", info.Name, p.engine.Name(), err))
		}
		if text := strings.TrimSpace(out.Text); text != "" {
			parts = append(parts, text)
		}
	}

	raw := StripSpace(strings.Join(parts, ""))
	res := Result{Page: page, OCRText: raw}
	if raw != "" {
		res.Address = p.glyphs.Correct(raw)
		res.Provenance = ProvenanceOCR
	}
	if res.Address == "" {
		res.Address, res.Provenance = SentinelUnrecognized, ProvenanceUnrecognized
		if anchored {
			res.Address, res.Provenance = SentinelRedacted, ProvenanceRedacted
		}
	}
	return res
}
