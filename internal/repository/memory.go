package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
)

// memoryStore keeps everything in process; used for local runs and tests.
type memoryStore struct {
	mu     sync.RWMutex
	claims map[uuid.UUID]*entity.Claim
	order  []uuid.UUID
	recs   map[uuid.UUID][]entity.RecommendationRecord
	now    func() time.Time
	logger *slog.Logger
}

func NewMemoryStore(logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &memoryStore{
		claims: make(map[uuid.UUID]*entity.Claim),
		recs:   make(map[uuid.UUID][]entity.RecommendationRecord),
		now:    new(clock).now,
		logger: logger,
	}
}

func (m *memoryStore) CreateClaim(_ context.Context, req CreateClaimRequest) (*entity.Claim, error) {
	c := newClaim(req, m.now())
	m.mu.Lock()
	m.claims[c.ID] = c
	m.order = append(m.order, c.ID)
	m.mu.Unlock()
	m.logger.Debug("claim created", "claim_id", c.ID)
	return cloneClaim(c), nil
}

func (m *memoryStore) GetClaim(_ context.Context, id uuid.UUID) (*entity.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, notFound(id)
	}
	return cloneClaim(c), nil
}

func (m *memoryStore) GetClaimByHash(_ context.Context, contentHash string) (*entity.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		if c := m.claims[id]; contentHash != "" && c.Document.ContentHash == contentHash {
			return cloneClaim(c), nil
		}
	}
	return nil, common.NewAppError(common.CodeNotFound, "no claim for content hash", common.ErrNotFound)
}

func (m *memoryStore) ListClaims(_ context.Context, filter ClaimFilter) ([]*entity.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*entity.Claim, 0, len(m.order))
	for _, id := range m.order {
		c := m.claims[id]
		if filter.Status != "" && claimStatus(c.Fields) != string(filter.Status) {
			continue
		}
		out = append(out, cloneClaim(c))
	}
	return page(out, filter.Limit, filter.Offset), nil
}

func (m *memoryStore) SaveRecommendations(_ context.Context, claimID uuid.UUID, recs []entity.Recommendation) ([]entity.RecommendationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[claimID]; !ok {
		return nil, notFound(claimID)
	}
	rows := newRecords(claimID, recs, m.now())
	m.recs[claimID] = append(m.recs[claimID], rows...)
	return append([]entity.RecommendationRecord(nil), rows...), nil
}

func (m *memoryStore) ListRecommendations(_ context.Context, claimID uuid.UUID) ([]entity.RecommendationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.claims[claimID]; !ok {
		return nil, notFound(claimID)
	}
	all := m.recs[claimID]
	out := make([]entity.RecommendationRecord, len(all))
	// runs are appended in time order; reverse run order, keep rank order
	runs := make(map[uuid.UUID]int)
	for i, r := range all {
		if _, ok := runs[r.RunID]; !ok {
			runs[r.RunID] = i
		}
	}
	copy(out, all)
	sort.SliceStable(out, func(i, j int) bool {
		return runs[out[i].RunID] > runs[out[j].RunID]
	})
	return out, nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }
func (m *memoryStore) Close() error               { return nil }

func notFound(id uuid.UUID) error {
	return common.NewAppError(common.CodeNotFound, fmt.Sprintf("claim %s", id), common.ErrNotFound)
}
