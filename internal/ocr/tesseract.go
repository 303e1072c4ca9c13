// Package ocr extracts plain text from scanned document images.
package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Engine extracts text from an image. Implementations must be safe for
// concurrent use.
type Engine interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Tesseract runs OCR through the local tesseract installation. A fresh
// gosseract client per call keeps it goroutine safe.
type Tesseract struct {
	Languages []string
}

// NewTesseract creates the engine; languages defaults to English.
func NewTesseract(languages []string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{Languages: languages}
}

// ExtractText runs tesseract over the image bytes.
func (t *Tesseract) ExtractText(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.Languages...); err != nil {
		return "", fmt.Errorf("set ocr language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set ocr image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("run ocr: %w", err)
	}
	return text, nil
}
