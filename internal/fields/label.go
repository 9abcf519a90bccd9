package fields

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
)

const (
	maxLabelGap   = 12 // separator bytes between a label and its value
	maxValueWords = 5
	maxValueLen   = 60
	fallbackSpan  = 240 // leading bytes searched for an unlabeled name
)

var (
	// Longer alternatives first: Go alternation is leftmost-first.
	reNameLabel = regexp.MustCompile(`(?i)\b(name\s+of\s+(?:the\s+)?(?:claimant|applicant|right\s+holder)|claimant'?s?\s+name|applicant'?s?\s+name|claimant|applicant|holder|name)\b`)

	reVillageLabel = regexp.MustCompile(`(?i)\b(name\s+of\s+(?:the\s+)?village|village\s+name|gram\s+panchayat|village|vill|gram|habitation)\b`)

	reCapitalized = regexp.MustCompile(`\p{Lu}[\p{L}'.]*(?: \p{Lu}[\p{L}'.]*)+`)

	reLocative = regexp.MustCompile(`\b(?:at|in|of) (\p{Lu}[\p{L}'.]*(?: \p{Lu}[\p{L}'.]*)*)`)
)

// stopWords end a value: they start the next form field.
var stopWords = setOf(
	"name", "claimant", "applicant", "holder", "village", "vill", "gram", "panchayat", "sabha",
	"habitation", "area", "status", "district", "tehsil", "taluk", "block", "state", "father",
	"husband", "mother", "spouse", "address", "date", "age", "caste", "tribe", "category",
	"survey", "khasra", "plot", "compartment", "claim", "of", "pin", "extent", "land",
	"occupation", "mobile", "phone", "signature", "hectare", "hectares", "hect", "ha", "acre",
	"acres", "ac", "total",
)

// honorifics are dropped from the front of a name.
var honorifics = setOf("mr", "mrs", "ms", "smt", "shri", "shree", "sri", "kumari", "km", "dr")

// namePrefixes disqualify a bare "name" label ("Village Name", "Father's Name").
var namePrefixes = setOf(
	"village", "father", "husband", "mother", "spouse", "district", "scheme", "gram",
	"panchayat", "tehsil", "block", "guardian", "forest",
)

// boilerplate marks capitalized runs that belong to the form, not the claimant.
var boilerplate = setOf(
	"forest", "forests", "rights", "right", "claim", "claims", "form", "government", "india",
	"department", "act", "scheme", "district", "tehsil", "state", "village", "name", "area",
	"status", "office", "certificate", "recognition", "application", "title", "land", "tribal",
	"committee", "gram", "sabha", "panchayat", "claimant", "applicant", "the", "of", "for",
	"and", "schedule", "tribes", "tribe", "traditional", "dwellers", "individual", "community",
	"annexure", "rules", "section", "sub", "divisional", "level", "ministry", "affairs",
)

func setOf(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func contains(set map[string]struct{}, word string) bool {
	_, ok := set[strings.ToLower(strings.Trim(word, ".'"))]
	return ok
}

type candidate struct {
	value    string
	distance int
	pos      int
}

func better(a, b candidate) bool {
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	return a.pos < b.pos
}

func extractName(doc document) entity.FieldExtraction {
	if c, ok := labelled(doc.text, reNameLabel, namePrefixes); ok {
		if v := stripHonorifics(c.value); v != "" {
			return entity.TextField(constants.FieldClaimantName, titleCase(v), ConfidenceLabel, constants.MethodLabelProximity)
		}
	}
	if v, ok := leadingCapitalized(doc.text); ok {
		if v = stripHonorifics(v); v != "" {
			return entity.TextField(constants.FieldClaimantName, titleCase(v), ConfidenceFallback, constants.MethodHeuristicFallback)
		}
	}
	return entity.Missing(constants.FieldClaimantName)
}

func extractVillage(doc document) entity.FieldExtraction {
	if c, ok := labelled(doc.text, reVillageLabel, nil); ok {
		return entity.TextField(constants.FieldVillage, titleCase(c.value), ConfidenceLabel, constants.MethodLabelProximity)
	}
	if v, ok := locative(doc.text); ok {
		return entity.TextField(constants.FieldVillage, titleCase(v), ConfidenceFallback, constants.MethodHeuristicFallback)
	}
	return entity.Missing(constants.FieldVillage)
}

// labelled finds label-value pairs; the nearest value wins, then the earliest.
func labelled(text string, label *regexp.Regexp, skipAfter map[string]struct{}) (candidate, bool) {
	var best candidate
	found := false
	for _, m := range label.FindAllStringIndex(text, -1) {
		if skipAfter != nil && contains(skipAfter, previousWord(text, m[0])) {
			continue
		}
		start := m[1]
		for start < len(text) && isSeparator(text[start]) {
			start++
		}
		dist := start - m[1]
		if dist > maxLabelGap {
			continue
		}
		v := readValue(text[start:])
		if v == "" {
			continue
		}
		c := candidate{value: v, distance: dist, pos: start}
		if !found || better(c, best) {
			best, found = c, true
		}
	}
	return best, found
}

func isSeparator(b byte) bool {
	switch b {
	case ' ', '\n', ':', '-', '.', '=':
		return true
	}
	return false
}

// previousWord returns the word ending just before offset i.
func previousWord(text string, i int) string {
	end := i
	for end > 0 && text[end-1] == ' ' {
		end--
	}
	start := end
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '\'' {
			break
		}
		start -= size
	}
	w := strings.ToLower(text[start:end])
	return strings.TrimSuffix(strings.TrimSuffix(w, "'s"), "'")
}

// readValue reads up to maxValueWords letter words separated by single
// spaces, stopping at digits, punctuation, line breaks or another label.
func readValue(s string) string {
	var words []string
	length := 0
	i := 0
	for len(words) < maxValueWords {
		j := i
		for j < len(s) {
			r, size := utf8.DecodeRuneInString(s[j:])
			if !(unicode.IsLetter(r) || (j > i && (r == '\'' || r == '.'))) {
				break
			}
			j += size
		}
		if j == i {
			break
		}
		w := s[i:j]
		if contains(stopWords, w) {
			break
		}
		if length+len(w)+1 > maxValueLen {
			break
		}
		words = append(words, w)
		length += len(w) + 1
		if j+1 >= len(s) || s[j] != ' ' {
			break
		}
		next, _ := utf8.DecodeRuneInString(s[j+1:])
		if !unicode.IsLetter(next) {
			break
		}
		i = j + 1
	}
	return strings.TrimRight(strings.Join(words, " "), ".'")
}

// leadingCapitalized finds the first multi-word capitalized run near the top
// of the document, skipping form boilerplate words.
func leadingCapitalized(text string) (string, bool) {
	head := text
	if len(head) > fallbackSpan {
		head = head[:fallbackSpan]
		for !utf8.ValidString(head) {
			head = head[:len(head)-1]
		}
	}
	for _, m := range reCapitalized.FindAllString(head, -1) {
		for _, seg := range segments(m) {
			if len(seg) >= 2 {
				return joinWords(seg), true
			}
		}
	}
	return "", false
}

// locative finds a capitalized place name following at/in/of.
func locative(text string) (string, bool) {
	for _, m := range reLocative.FindAllStringSubmatch(text, -1) {
		segs := segments(m[1])
		// the place name must directly follow the preposition
		if len(segs) > 0 && strings.HasPrefix(m[1], segs[0][0]) {
			return joinWords(segs[0]), true
		}
	}
	return "", false
}

// segments splits a capitalized run at boilerplate words.
func segments(run string) [][]string {
	var out [][]string
	var cur []string
	for _, w := range strings.Fields(run) {
		if contains(boilerplate, w) || contains(stopWords, w) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, w)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func stripHonorifics(name string) string {
	words := strings.Fields(name)
	for len(words) > 0 && contains(honorifics, words[0]) {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

func joinWords(words []string) string {
	if len(words) > maxValueWords {
		words = words[:maxValueWords]
	}
	v := strings.TrimRight(strings.Join(words, " "), ".'")
	for len(v) > maxValueLen {
		i := strings.LastIndexByte(v, ' ')
		if i < 0 {
			return v[:maxValueLen]
		}
		v = v[:i]
	}
	return v
}
