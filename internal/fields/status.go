package fields

import (
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
)

// reStatus matches any status term; built longest-first from the vocabulary.
var reStatus = buildStatusPattern()

func buildStatusPattern() *regexp.Regexp {
	vocab := constants.StatusVocabulary()
	terms := make([]string, 0, len(vocab))
	for term := range vocab {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})
	alts := make([]string, len(terms))
	for i, t := range terms {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(t), " ", `\s+`)
	}
	return regexp.MustCompile(`\b(` + strings.Join(alts, "|") + `)\b`)
}

// negators void the status term right after them ("not approved", "un-approved").
var negators = setOf("not", "no", "never", "un", "non")

// extractStatus takes the earliest status term that is not negated; pending
// with zero confidence when none appears.
func extractStatus(doc document) entity.FieldExtraction {
	m := ""
	for _, loc := range reStatus.FindAllStringIndex(doc.lower, -1) {
		if negated(doc.lower, loc[0]) {
			continue
		}
		m = doc.lower[loc[0]:loc[1]]
		break
	}
	if m == "" {
		return entity.TextField(constants.FieldStatus, string(constants.StatusPending), 0, constants.MethodDefault)
	}
	status, canonical, _ := constants.Canonicalize(m)
	conf := ConfidenceSynonym
	if canonical {
		conf = ConfidenceStatus
	}
	return entity.TextField(constants.FieldStatus, string(status), conf, constants.MethodKeyword)
}

// negated reports whether the word before offset i is a negator, optionally
// joined by a hyphen.
func negated(text string, i int) bool {
	if i > 0 && text[i-1] == '-' {
		i--
	}
	return contains(negators, previousWord(text, i))
}
