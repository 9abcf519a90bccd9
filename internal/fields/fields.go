// Package fields turns noisy OCR text into typed claim fields.
//
// Extraction is total: every call returns one FieldExtraction per required
// field, with a null value and zero confidence when nothing was found.
package fields

import (
	"log/slog"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
)

// Confidence levels per strategy.
const (
	ConfidenceLabel    = 0.9
	ConfidenceFallback = 0.4
	ConfidenceArea     = 0.8
	ConfidenceStatus   = 0.9
	ConfidenceSynonym  = 0.8
)

// Extractor runs the field strategies over extracted text.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract never fails; ambiguity lowers confidence instead.
func (x *Extractor) Extract(text entity.ExtractedText) entity.ClaimFields {
	doc := prepare(text.Text())

	out := entity.ClaimFields{
		constants.FieldClaimantName: extractName(doc),
		constants.FieldVillage:      extractVillage(doc),
		constants.FieldArea:         extractArea(doc),
		constants.FieldStatus:       extractStatus(doc),
	}

	attrs := make([]any, 0, 2*len(out))
	for _, f := range constants.RequiredFields {
		attrs = append(attrs, string(f), out[f].Method)
	}
	x.logger.Debug("fields extracted", attrs...)
	return out
}

// ExtractFields is Extract with the default logger.
func ExtractFields(text entity.ExtractedText) entity.ClaimFields {
	return NewExtractor(nil).Extract(text)
}
