package ocr

import (
	"context"
	"image"
	"io"
	"strings"
)

// Input is one image submitted for recognition.
type Input struct {
	// ID is echoed back in Result.InputID. The pipeline uses
	// "page-<n>-<resource name>".
	ID    string
	Image image.Image
}

// Word is one recognized token.
type Word struct {
	Text   string
	Bounds image.Rectangle
	// Confidence is in [0, 1]; zero when the engine does not report one.
	Confidence float64
}

// Line groups the words of one text line.
type Line struct {
	Text  string
	Words []Word
}

// Result is the recognition output for one Input.
type Result struct {
	InputID string
	// Text is the recognized text, lines separated by newlines.
	Text  string
	Lines []Line
	// Confidence is the mean word confidence.
	Confidence float64
}

// Engine is an OCR provider: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

// neural is implemented by engines whose models read the original scan
// better than a binarized one.
type neural interface {
	Neural() bool
}

// concurrent is implemented by engines that may be called from several
// goroutines at once.
type concurrent interface {
	ConcurrencySafe() bool
}

// IsNeural reports whether e wants images without preprocessing.
func IsNeural(e Engine) bool {
	n, ok := e.(neural)
	return ok && n.Neural()
}

// IsConcurrencySafe reports whether e may be called concurrently. Engines
// that do not say are assumed unsafe.
func IsConcurrencySafe(e Engine) bool {
	c, ok := e.(concurrent)
	return ok && c.ConcurrencySafe()
}

// Close closes e if it holds resources.
func Close(e Engine) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Nop is an engine that recognizes nothing.
type Nop struct{}

func (Nop) Name() string          { return "none" }
func (Nop) ConcurrencySafe() bool { return true }

func (Nop) Recognize(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{InputID: in.ID}, nil
}

// resultFromLines fills Text and Confidence from lines.
func resultFromLines(id string, lines []Line) Result {
	res := Result{InputID: id, Lines: lines}
	texts := make([]string, 0, len(lines))
	var sum float64
	var n int
	for _, l := range lines {
		if l.Text != "" {
			texts = append(texts, l.Text)
		}
		for _, w := range l.Words {
			sum += w.Confidence
			n++
		}
	}
	res.Text = strings.Join(texts, "\n")
	if n > 0 {
		res.Confidence = sum / float64(n)
	}
	return res
}
