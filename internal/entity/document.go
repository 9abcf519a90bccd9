package entity

import (
	"strings"
	"time"
)

// RawDocument is an uploaded claim document before OCR.
// MediaType is an extension or MIME type ("pdf", "image/png", ".jpg").
type RawDocument struct {
	Bytes     []byte
	MediaType string
}

// ExtractedText is the immutable OCR output of one document, one entry per page.
type ExtractedText struct {
	pages    []string
	warnings []string

	Method   string // "pdf-ocr" | "image-ocr"
	Language string
	Duration time.Duration
}

// NewExtractedText copies pages and warnings so later mutation of the inputs is not observed.
func NewExtractedText(pages, warnings []string, method, language string, dur time.Duration) ExtractedText {
	return ExtractedText{
		pages:    append([]string(nil), pages...),
		warnings: append([]string(nil), warnings...),
		Method:   method,
		Language: language,
		Duration: dur,
	}
}

// TextFromString wraps already-recognized text as a single page.
func TextFromString(s string) ExtractedText {
	return NewExtractedText([]string{s}, nil, "text", "", 0)
}

// Pages returns the page texts in document order.
func (t ExtractedText) Pages() []string { return append([]string(nil), t.pages...) }

// PageCount returns the number of pages.
func (t ExtractedText) PageCount() int { return len(t.pages) }

// Warnings returns non-fatal extraction notes (failed pages, truncation).
func (t ExtractedText) Warnings() []string { return append([]string(nil), t.warnings...) }

// Text joins pages with a blank line between them.
func (t ExtractedText) Text() string { return strings.Join(t.pages, "\n\n") }

// Empty reports whether no page carries any text.
func (t ExtractedText) Empty() bool {
	for _, p := range t.pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}
