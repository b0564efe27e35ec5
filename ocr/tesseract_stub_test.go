//go:build !ocr

package ocr

import (
	"context"
	"errors"
	"testing"
)

func TestNewTesseractReturnsError(t *testing.T) {
	client, err := NewTesseract(TesseractConfig{})
	if err == nil {
		t.Error("Expected error from NewTesseract() when OCR is disabled")
	}
	if !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("Expected ErrOCRNotEnabled, got: %v", err)
	}
	if client != nil {
		t.Error("Expected nil client when OCR is disabled")
	}
}

func TestNewDefaultsToTesseract(t *testing.T) {
	e, err := New(context.Background(), Options{})
	if !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("Expected ErrOCRNotEnabled, got: %v", err)
	}
	if e != nil {
		t.Error("Expected nil engine when OCR is disabled")
	}
}

func TestCloseOnNilTesseract(t *testing.T) {
	var client *Tesseract
	if err := client.Close(); err != nil {
		t.Errorf("Close on nil client should not error: %v", err)
	}
}
