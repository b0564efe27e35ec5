package deedscan

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"

	"github.com/tsawler/deedscan/deed"
	"github.com/tsawler/deedscan/glyph"
	"github.com/tsawler/deedscan/ocr"
)

// fixedEngine recognizes every image as text.
type fixedEngine struct {
	text  string
	calls int
}

func (e *fixedEngine) Name() string { return "fixed" }

func (e *fixedEngine) Recognize(_ context.Context, in ocr.Input) (ocr.Result, error) {
	e.calls++
	return ocr.Result{InputID: in.ID, Text: e.text}, nil
}

// scanPDF returns a one-page PDF whose only content is a JPEG scan.
func scanPDF(t *testing.T) []byte {
	t.Helper()
	scan := image.NewGray(image.Rect(0, 0, 40, 10))
	for i := range scan.Pix {
		scan.Pix[i] = 0xFF
	}
	for x := 4; x < 36; x++ {
		scan.SetGray(x, 5, color.Gray{Y: 0})
	}
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, scan, nil); err != nil {
		t.Fatal(err)
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("address", opts, &jpg)
	pdf.ImageOptions("address", 100, 200, 200, 50, false, opts, 0, "")
	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		t.Fatal(err)
	}
	return out.Bytes()
}

func writeScan(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deed.pdf")
	if err := os.WriteFile(path, scanPDF(t), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenMissingFile(t *testing.T) {
	res, err := Open("nonexistent.pdf").Address(context.Background())
	if !errors.Is(err, deed.ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if res.Address != deed.SentinelFailed || res.Provenance != deed.ProvenanceFailed {
		t.Errorf("expected a failure result, got %+v", res)
	}
}

func TestFromBytesGarbage(t *testing.T) {
	if _, err := FromBytes([]byte("not a pdf")).PageCount(); !errors.Is(err, deed.ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
	if _, err := (&Extractor{}).PageTexts(); !errors.Is(err, deed.ErrOpen) {
		t.Errorf("expected ErrOpen without a source, got %v", err)
	}
}

func TestAddressWithoutEngine(t *testing.T) {
	res, err := Open(writeScan(t)).Address(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Address != deed.SentinelUnrecognized {
		t.Errorf("Address = %q, want %q", res.Address, deed.SentinelUnrecognized)
	}
}

func TestAddressCorrections(t *testing.T) {
	path := writeScan(t)
	tests := []struct {
		name    string
		extract func(*Extractor) *Extractor
		want    string
	}{
		{
			name:    "default table",
			extract: func(e *Extractor) *Extractor { return e },
			want:    "新北市淡水區中正路",
		},
		{
			name: "added fix wins",
			extract: func(e *Extractor) *Extractor {
				return e.Corrections(glyph.Fix{From: "淼", To: "森"})
			},
			want: "新北市森水區中正路",
		},
		{
			name: "replaced table",
			extract: func(e *Extractor) *Extractor {
				return e.Corrections(glyph.Fix{From: "淼", To: "森"}).GlyphTable(glyph.NewTable(nil, nil))
			},
			want: "新北市淼水區中正路LL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fixedEngine{text: "新北市淼水區中正路LL"}
			res, err := tt.extract(Open(path).Engine(engine)).Address(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Address != tt.want {
				t.Errorf("Address = %q, want %q", res.Address, tt.want)
			}
			if res.Provenance != deed.ProvenanceOCR {
				t.Errorf("Provenance = %s, want ocr", res.Provenance)
			}
			if engine.calls != 1 {
				t.Errorf("engine called %d times, want 1", engine.calls)
			}
		})
	}
}

func TestConfigurationIsImmutable(t *testing.T) {
	base := Open("deed.pdf")
	derived := base.Corrections(glyph.Fix{From: "a", To: "b"})
	derived.Corrections(glyph.Fix{From: "c", To: "d"})

	if len(base.options.fixes) != 0 {
		t.Errorf("base options changed: %v", base.options.fixes)
	}
	if len(derived.options.fixes) != 1 {
		t.Errorf("derived fixes = %v, want one", derived.options.fixes)
	}
}

func TestTextFieldOnScan(t *testing.T) {
	ext := FromBytes(scanPDF(t))
	if n := Must(ext.PageCount()); n != 1 {
		t.Errorf("PageCount = %d, want 1", n)
	}
	field, page, err := ext.TextField()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page != 0 || field.Anchored || field.Value != "" {
		t.Errorf("TextField = %+v on page %d", field, page)
	}
}

func TestCloseReopens(t *testing.T) {
	ext := Open(writeScan(t))
	if _, err := ext.PageCount(); err != nil {
		t.Fatal(err)
	}
	if err := ext.Close(); err != nil {
		t.Fatal(err)
	}
	if err := ext.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if n, err := ext.PageCount(); err != nil || n != 1 {
		t.Errorf("PageCount after Close = %d, %v", n, err)
	}
}

func TestMustPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Must(Open("nonexistent.pdf").PageCount())
}
