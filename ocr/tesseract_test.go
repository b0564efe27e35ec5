//go:build ocr

package ocr

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os/exec"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func textImage(s string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 200, 40))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 25),
	}
	d.DrawString(s)
	return img
}

func TestTesseractRecognize(t *testing.T) {
	ensureTesseractAvailable(t)

	engine, err := NewTesseract(TesseractConfig{Languages: []string{"eng"}})
	if err != nil {
		t.Fatalf("NewTesseract failed: %v", err)
	}
	defer engine.Close()

	res, err := engine.Recognize(context.Background(), Input{ID: "page-1-Im0", Image: textImage("Lot 182")})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if !strings.Contains(res.Text, "182") {
		t.Errorf("unexpected OCR output: %q", res.Text)
	}
	if res.InputID != "page-1-Im0" {
		t.Errorf("InputID = %q", res.InputID)
	}
	if len(res.Lines) == 0 || len(res.Lines[0].Words) == 0 {
		t.Error("expected words from hOCR output")
	}
}

func TestTesseractBlankImage(t *testing.T) {
	ensureTesseractAvailable(t)

	engine, err := NewTesseract(TesseractConfig{Languages: []string{"eng"}})
	if err != nil {
		t.Fatalf("NewTesseract failed: %v", err)
	}
	defer engine.Close()

	res, err := engine.Recognize(context.Background(), Input{Image: textImage("")})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if strings.TrimSpace(res.Text) != "" {
		t.Errorf("blank image recognized as %q", res.Text)
	}
}

func TestTesseractClose(t *testing.T) {
	ensureTesseractAvailable(t)

	engine, err := NewTesseract(TesseractConfig{})
	if err != nil {
		t.Fatalf("NewTesseract failed: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := engine.Recognize(context.Background(), Input{Image: textImage("x")}); err != ErrClosed {
		t.Errorf("Recognize after Close = %v, want ErrClosed", err)
	}
}

func TestTesseractInvalidPageSegMode(t *testing.T) {
	if _, err := NewTesseract(TesseractConfig{PageSegMode: 42}); err == nil {
		t.Error("expected error for page segmentation mode 42")
	}
}
