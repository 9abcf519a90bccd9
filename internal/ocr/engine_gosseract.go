//go:build gosseract

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// gosseractEngine runs Tesseract in-process through cgo bindings.
type gosseractEngine struct {
	lang        string
	tessdataDir string
}

// NewGosseractEngine returns an in-process Tesseract engine.
// Requires building with -tags gosseract and libtesseract installed.
func NewGosseractEngine(lang, tessdataDir string) (Engine, error) {
	if lang == "" {
		lang = "eng"
	}
	return &gosseractEngine{lang: lang, tessdataDir: tessdataDir}, nil
}

func (g *gosseractEngine) Name() string { return "tesseract-gosseract" }

// Recognize creates a client per call; gosseract clients are not safe for concurrent use.
func (g *gosseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if g.tessdataDir != "" {
		if err := client.SetTessdataPrefix(g.tessdataDir); err != nil {
			return "", fmt.Errorf("gosseract tessdata: %w", err)
		}
	}
	if err := client.SetLanguage(g.lang); err != nil {
		return "", fmt.Errorf("gosseract language: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("gosseract image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("gosseract: %w", err)
	}
	return Normalize(text), nil
}
