package fields

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// document is OCR text in two views: cased for names, lowered for keywords.
// Both views have identical byte offsets.
type document struct {
	text  string
	lower string
}

func keepRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return strings.ContainsRune(".:,-/()'", r)
}

// prepare folds compatibility forms, drops OCR artifacts and collapses
// whitespace while keeping line breaks.
func prepare(raw string) document {
	s := norm.NFKC.String(raw)

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace, pendingLine := false, false
	flush := func() {
		switch {
		case b.Len() == 0:
		case pendingLine:
			b.WriteByte('\n')
		case pendingSpace:
			b.WriteByte(' ')
		}
		pendingSpace, pendingLine = false, false
	}
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\f' || r == '\v':
			pendingLine = true
		case unicode.IsSpace(r):
			pendingSpace = true
		case keepRune(r):
			flush()
			b.WriteRune(r)
		default:
			pendingSpace = true
		}
	}
	text := b.String()
	return document{text: text, lower: lowerSameWidth(text)}
}

// lowerSameWidth lowercases runes whose lowercase form has the same UTF-8
// width, so offsets stay valid across views.
func lowerSameWidth(s string) string {
	return strings.Map(func(r rune) rune {
		l := unicode.ToLower(r)
		if len(string(l)) != len(string(r)) {
			return r
		}
		return l
	}, s)
}

// titleCase turns "RAMESH kumar" into "Ramesh Kumar".
// Casers are stateful, so each call gets its own.
func titleCase(s string) string {
	return cases.Title(language.Und).String(strings.ToLower(s))
}
