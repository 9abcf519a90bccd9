package common

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
)

// FieldError is one failed check on a request parameter.
type FieldError struct {
	Field   string
	Value   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %q %s", e.Field, e.Value, e.Message)
}

// Rule checks a raw parameter and returns a message when it fails.
type Rule func(value string) string

// Validator collects field errors for one request.
type Validator struct {
	errs []FieldError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field runs rules in order and records the first failure only.
func (v *Validator) Field(name, value string, rules ...Rule) *Validator {
	for _, rule := range rules {
		if msg := rule(value); msg != "" {
			v.errs = append(v.errs, FieldError{Field: name, Value: value, Message: msg})
			break
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.errs) > 0 }

func (v *Validator) Errors() []FieldError { return v.errs }

// Error returns an AppError wrapping ErrInvalidInput, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	msgs := make([]string, 0, len(v.errs))
	for _, e := range v.errs {
		msgs = append(msgs, e.Error())
	}
	return NewAppError(CodeInvalidInput, strings.Join(msgs, "; "), ErrInvalidInput)
}

func Required(value string) string {
	if strings.TrimSpace(value) == "" {
		return "is required"
	}
	return ""
}

func UUID(value string) string {
	if _, err := uuid.Parse(value); err != nil {
		return "must be a valid UUID"
	}
	return ""
}

// Status accepts an empty value, a canonical status or a known synonym.
func Status(value string) string {
	if value == "" {
		return ""
	}
	if _, _, ok := constants.Canonicalize(value); !ok {
		return "must be one of granted, pending, rejected"
	}
	return ""
}

// NonNegativeInt accepts an empty value or a base-10 integer >= 0.
func NonNegativeInt(value string) string {
	if value == "" {
		return ""
	}
	if n, err := strconv.Atoi(value); err != nil || n < 0 {
		return "must be a non-negative integer"
	}
	return ""
}

// ClaimQuery is a validated claim listing request.
type ClaimQuery struct {
	Status constants.ClaimStatus // empty means any
	Limit  int
	Offset int
}

// ParseClaimQuery validates raw listing parameters and canonicalizes the status.
func ParseClaimQuery(status, limit, offset string) (ClaimQuery, error) {
	status = strings.TrimSpace(status)
	v := NewValidator().
		Field("status", status, Status).
		Field("limit", limit, NonNegativeInt).
		Field("offset", offset, NonNegativeInt)
	if err := v.Error(); err != nil {
		return ClaimQuery{}, err
	}
	var q ClaimQuery
	if status != "" {
		q.Status, _, _ = constants.Canonicalize(status)
	}
	q.Limit, _ = strconv.Atoi(limit)
	q.Offset, _ = strconv.Atoi(offset)
	return q, nil
}

// ParseClaimID validates and parses a claim identifier.
func ParseClaimID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if err := NewValidator().Field("claim_id", raw, Required, UUID).Error(); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(raw), nil
}

// IsValidationError reports whether err came from a Validator.
func IsValidationError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeInvalidInput
}
