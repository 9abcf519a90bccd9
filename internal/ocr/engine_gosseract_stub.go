//go:build !gosseract

package ocr

import "errors"

// ErrGosseractNotEnabled is returned when the binary was built without the gosseract tag.
var ErrGosseractNotEnabled = errors.New("in-process OCR not enabled: rebuild with -tags gosseract")

// NewGosseractEngine reports ErrGosseractNotEnabled; use the CLI engine instead.
func NewGosseractEngine(lang, tessdataDir string) (Engine, error) {
	return nil, ErrGosseractNotEnabled
}
