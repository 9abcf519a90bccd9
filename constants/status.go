package constants

import "strings"

// ClaimStatus is the canonical decision state of a forest-rights claim.
type ClaimStatus string

// Stable values (store these exact strings).
const (
	StatusGranted  ClaimStatus = "granted"
	StatusPending  ClaimStatus = "pending"
	StatusRejected ClaimStatus = "rejected"
)

var allStatuses = []ClaimStatus{StatusGranted, StatusPending, StatusRejected}

// statusSynonyms maps wording found on claim forms to a canonical status.
var statusSynonyms = map[string]ClaimStatus{
	"approved":     StatusGranted,
	"sanctioned":   StatusGranted,
	"accepted":     StatusGranted,
	"under review": StatusPending,
	"processing":   StatusPending,
	"submitted":    StatusPending,
	"denied":       StatusRejected,
	"declined":     StatusRejected,
	"cancelled":    StatusRejected,
}

// Statuses returns the canonical statuses in declaration order.
func Statuses() []ClaimStatus {
	out := make([]ClaimStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// StatusVocabulary returns every term that maps to a status, canonical and synonym.
func StatusVocabulary() map[string]ClaimStatus {
	out := make(map[string]ClaimStatus, len(allStatuses)+len(statusSynonyms))
	for _, s := range allStatuses {
		out[string(s)] = s
	}
	for k, v := range statusSynonyms {
		out[k] = v
	}
	return out
}

// Canonicalize resolves a status term. canonical reports whether the input was
// the canonical keyword itself rather than a synonym; ok is false if unknown.
func Canonicalize(input string) (status ClaimStatus, canonical bool, ok bool) {
	normalized := strings.Join(strings.Fields(strings.ToLower(input)), " ")
	if normalized == "" {
		return StatusPending, false, false
	}
	for _, s := range allStatuses {
		if normalized == string(s) {
			return s, true, true
		}
	}
	if s, found := statusSynonyms[normalized]; found {
		return s, false, true
	}
	return StatusPending, false, false
}

// IsValidStatus reports whether s is one of the canonical statuses.
func IsValidStatus(s string) bool {
	_, canonical, ok := Canonicalize(s)
	return ok && canonical
}
