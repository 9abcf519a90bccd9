package entity

import (
	"github.com/joseph-ayodele/forest-rights-tracker/constants"
)

// FieldExtraction is one extracted claim attribute. Exactly one of Text or
// Number is set when a value was found; a missing value always has confidence 0.
type FieldExtraction struct {
	Name       constants.FieldName        `json:"name"`
	Text       *string                    `json:"text,omitempty"`
	Number     *float64                   `json:"number,omitempty"`
	Confidence float64                    `json:"confidence"`
	Method     constants.ExtractionMethod `json:"method"`
}

// Present reports whether a value was extracted.
func (f FieldExtraction) Present() bool { return f.Text != nil || f.Number != nil }

// Populated reports whether a value is present with non-zero confidence.
func (f FieldExtraction) Populated() bool { return f.Present() && f.Confidence > 0 }

// Missing builds the null extraction for name.
func Missing(name constants.FieldName) FieldExtraction {
	return FieldExtraction{Name: name, Method: constants.MethodNone}
}

// TextField builds a string-valued extraction.
func TextField(name constants.FieldName, v string, conf float64, m constants.ExtractionMethod) FieldExtraction {
	return FieldExtraction{Name: name, Text: &v, Confidence: conf, Method: m}
}

// NumberField builds a numeric extraction.
func NumberField(name constants.FieldName, v float64, conf float64, m constants.ExtractionMethod) FieldExtraction {
	return FieldExtraction{Name: name, Number: &v, Confidence: conf, Method: m}
}

// ClaimFields holds one extraction per claim field.
type ClaimFields map[constants.FieldName]FieldExtraction

// Complete reports whether every required field has an entry (possibly null).
func (c ClaimFields) Complete() bool {
	for _, f := range constants.RequiredFields {
		if _, ok := c[f]; !ok {
			return false
		}
	}
	return true
}

// AnyPopulated reports whether at least one field carries a confident value.
func (c ClaimFields) AnyPopulated() bool {
	for _, f := range c {
		if f.Populated() {
			return true
		}
	}
	return false
}

// Get returns the extraction for name, or its null extraction.
func (c ClaimFields) Get(name constants.FieldName) FieldExtraction {
	if f, ok := c[name]; ok {
		return f
	}
	return Missing(name)
}

// ClaimantName returns the extracted name, "" when missing.
func (c ClaimFields) ClaimantName() string { return c.text(constants.FieldClaimantName) }

// Village returns the extracted village, "" when missing.
func (c ClaimFields) Village() string { return c.text(constants.FieldVillage) }

// Area returns the area in hectares.
func (c ClaimFields) Area() (float64, bool) {
	f := c.Get(constants.FieldArea)
	if f.Number == nil {
		return 0, false
	}
	return *f.Number, true
}

// Status returns the canonical claim status.
func (c ClaimFields) Status() (constants.ClaimStatus, bool) {
	f := c.Get(constants.FieldStatus)
	if f.Text == nil {
		return "", false
	}
	s, _, ok := constants.Canonicalize(*f.Text)
	return s, ok
}

// Clone returns a copy that shares no pointers with c.
func (c ClaimFields) Clone() ClaimFields {
	out := make(ClaimFields, len(c))
	for k, v := range c {
		if v.Text != nil {
			s := *v.Text
			v.Text = &s
		}
		if v.Number != nil {
			n := *v.Number
			v.Number = &n
		}
		out[k] = v
	}
	return out
}

func (c ClaimFields) text(name constants.FieldName) string {
	f := c.Get(name)
	if f.Text == nil {
		return ""
	}
	return *f.Text
}
