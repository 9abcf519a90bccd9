package entity

import (
	"encoding/json"
	"slices"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
)

// Predicate kinds as written in catalog files.
const (
	KindMaxArea       = "max_area"
	KindMinArea       = "min_area"
	KindAllowedStatus = "allowed_status"
)

// Predicate is a machine-checkable eligibility test over one claim field.
// The set of implementations is closed to this package.
type Predicate interface {
	Kind() string
	Field() constants.FieldName
	// Test evaluates a present value; callers handle missing values.
	Test(f FieldExtraction) bool
	isPredicate()
}

// MaxArea passes when area <= Hectares.
type MaxArea struct{ Hectares float64 }

func (MaxArea) Kind() string               { return KindMaxArea }
func (MaxArea) Field() constants.FieldName { return constants.FieldArea }
func (p MaxArea) Test(f FieldExtraction) bool {
	return f.Number != nil && *f.Number <= p.Hectares
}
func (MaxArea) isPredicate() {}

// MinArea passes when area >= Hectares.
type MinArea struct{ Hectares float64 }

func (MinArea) Kind() string               { return KindMinArea }
func (MinArea) Field() constants.FieldName { return constants.FieldArea }
func (p MinArea) Test(f FieldExtraction) bool {
	return f.Number != nil && *f.Number >= p.Hectares
}
func (MinArea) isPredicate() {}

// AllowedStatus passes when the claim status is one of Statuses.
type AllowedStatus struct{ Statuses []constants.ClaimStatus }

func (AllowedStatus) Kind() string               { return KindAllowedStatus }
func (AllowedStatus) Field() constants.FieldName { return constants.FieldStatus }
func (p AllowedStatus) Test(f FieldExtraction) bool {
	if f.Text == nil {
		return false
	}
	s, _, ok := constants.Canonicalize(*f.Text)
	return ok && slices.Contains(p.Statuses, s)
}
func (AllowedStatus) isPredicate() {}

// Rule is one weighted eligibility condition of a scheme.
type Rule struct {
	Name      string
	Weight    float64
	Mandatory bool
	Predicate Predicate
}

type ruleJSON struct {
	Name      string                  `json:"name"`
	Kind      string                  `json:"kind"`
	Threshold *float64                `json:"threshold,omitempty"`
	Allowed   []constants.ClaimStatus `json:"allowed,omitempty"`
	Weight    float64                 `json:"weight"`
	Mandatory bool                    `json:"mandatory"`
}

// MarshalJSON flattens the predicate into kind/threshold/allowed.
func (r Rule) MarshalJSON() ([]byte, error) {
	out := ruleJSON{Name: r.Name, Weight: r.Weight, Mandatory: r.Mandatory}
	switch p := r.Predicate.(type) {
	case MaxArea:
		out.Kind, out.Threshold = p.Kind(), &p.Hectares
	case MinArea:
		out.Kind, out.Threshold = p.Kind(), &p.Hectares
	case AllowedStatus:
		out.Kind, out.Allowed = p.Kind(), p.Statuses
	}
	return json.Marshal(out)
}

// Scheme is a government scheme with its eligibility rules.
type Scheme struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Description         string   `json:"description,omitempty"`
	BenefitAmount       string   `json:"benefit_amount,omitempty"`
	Timeline            string   `json:"timeline,omitempty"`
	ImplementationSteps []string `json:"implementation_steps,omitempty"`
	Rules               []Rule   `json:"eligibility_rules"`
}

// Clone deep-copies the scheme.
func (s Scheme) Clone() Scheme {
	out := s
	out.ImplementationSteps = append([]string(nil), s.ImplementationSteps...)
	out.Rules = make([]Rule, len(s.Rules))
	for i, r := range s.Rules {
		if p, ok := r.Predicate.(AllowedStatus); ok {
			r.Predicate = AllowedStatus{Statuses: append([]constants.ClaimStatus(nil), p.Statuses...)}
		}
		out.Rules[i] = r
	}
	return out
}
