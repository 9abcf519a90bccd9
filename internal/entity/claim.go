package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DocumentRef describes the source document of a claim.
type DocumentRef struct {
	SourcePath  string `json:"source_path,omitempty"`
	Filename    string `json:"filename,omitempty"`
	MediaType   string `json:"media_type,omitempty"`
	ContentHash string `json:"content_hash,omitempty"` // hex sha256
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}

// Claim is a persisted forest-rights claim.
type Claim struct {
	ID        uuid.UUID       `json:"id"`
	Fields    ClaimFields     `json:"fields"`
	Document  DocumentRef     `json:"document"`
	Geometry  json.RawMessage `json:"geometry,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Recommendation is a scored scheme match for one claim.
type Recommendation struct {
	SchemeID           string    `json:"scheme_id"`
	SchemeName         string    `json:"scheme_name,omitempty"`
	ClaimID            uuid.UUID `json:"claim_id"`
	Score              float64   `json:"score"`
	MatchedRules       []string  `json:"matched_rules"`
	UnmatchedRules     []string  `json:"unmatched_rules"`
	IndeterminateRules []string  `json:"indeterminate_rules"`
}

// RecommendationRecord is a persisted Recommendation from one run.
type RecommendationRecord struct {
	ID        uuid.UUID `json:"id"`
	RunID     uuid.UUID `json:"run_id"`
	Rank      int       `json:"rank"`
	CreatedAt time.Time `json:"created_at"`
	Recommendation
}
