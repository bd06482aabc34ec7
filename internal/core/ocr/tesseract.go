package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine is the local fallback backend. It needs the tesseract
// shared library installed; availability is probed once at construction.
type TesseractEngine struct {
	available bool
}

func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{available: probeTesseract()}
}

func probeTesseract() (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	client := gosseract.NewClient()
	defer client.Close()
	langs, err := client.GetAvailableLanguages()
	return err == nil && len(langs) > 0
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Available() bool { return e.available }

func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("tesseract set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract recognize: %w", err)
	}
	return text, nil
}
