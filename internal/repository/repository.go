package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
)

// PlaceholderGeometry is assigned to new claims until a surveyed boundary exists:
// a small square near the origin, as GeoJSON.
var PlaceholderGeometry = json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[0.001,0],[0.001,0.001],[0,0.001],[0,0]]]}`)

// CreateClaimRequest wraps parameters for creating a claim.
type CreateClaimRequest struct {
	Fields   entity.ClaimFields
	Document entity.DocumentRef
	Warnings []string
}

// ClaimFilter narrows ListClaims. Zero values mean no filter.
type ClaimFilter struct {
	Status constants.ClaimStatus
	Limit  int
	Offset int
}

type ClaimRepository interface {
	CreateClaim(ctx context.Context, req CreateClaimRequest) (*entity.Claim, error)
	GetClaim(ctx context.Context, id uuid.UUID) (*entity.Claim, error)
	GetClaimByHash(ctx context.Context, contentHash string) (*entity.Claim, error)
	ListClaims(ctx context.Context, filter ClaimFilter) ([]*entity.Claim, error)
}

type RecommendationRepository interface {
	// SaveRecommendations stores one run; ranks follow slice order.
	SaveRecommendations(ctx context.Context, claimID uuid.UUID, recs []entity.Recommendation) ([]entity.RecommendationRecord, error)
	// ListRecommendations returns every stored run for a claim, newest run first.
	ListRecommendations(ctx context.Context, claimID uuid.UUID) ([]entity.RecommendationRecord, error)
}

// Store is the persistence collaborator of the pipeline.
type Store interface {
	ClaimRepository
	RecommendationRepository
	Ping(ctx context.Context) error
	Close() error
}

func newClaim(req CreateClaimRequest, now time.Time) *entity.Claim {
	fields := req.Fields.Clone()
	if fields == nil {
		fields = entity.ClaimFields{}
	}
	return &entity.Claim{
		ID:        uuid.New(),
		Fields:    fields,
		Document:  req.Document,
		Geometry:  append(json.RawMessage(nil), PlaceholderGeometry...),
		Warnings:  append([]string(nil), req.Warnings...),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newRecords(claimID uuid.UUID, recs []entity.Recommendation, now time.Time) []entity.RecommendationRecord {
	runID := uuid.New()
	out := make([]entity.RecommendationRecord, len(recs))
	for i, r := range recs {
		r.ClaimID = claimID
		out[i] = entity.RecommendationRecord{
			ID:             uuid.New(),
			RunID:          runID,
			Rank:           i + 1,
			CreatedAt:      now,
			Recommendation: r,
		}
	}
	return out
}

// claimStatus is the indexed status column; "" when no status was extracted.
func claimStatus(fields entity.ClaimFields) string {
	if s, ok := fields.Status(); ok {
		return string(s)
	}
	return ""
}

func cloneClaim(c *entity.Claim) *entity.Claim {
	out := *c
	out.Fields = c.Fields.Clone()
	out.Geometry = append(json.RawMessage(nil), c.Geometry...)
	out.Warnings = append([]string(nil), c.Warnings...)
	return &out
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// clock hands out strictly increasing UTC timestamps at microsecond
// precision, the resolution PostgreSQL keeps. Row order by created_at then
// matches insertion order.
type clock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := time.Now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
