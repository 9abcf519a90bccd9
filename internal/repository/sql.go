package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
)

// sqlStore implements Store over database/sql. Placeholders are rebound per
// dialect so the same queries serve SQLite and PostgreSQL.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
	logger  *slog.Logger
	onClose func()
}

type dialect struct {
	name        string
	placeholder func(n int) string
	schema      []string
}

func (s *sqlStore) q(query string) string {
	return rebind(query, s.dialect.placeholder)
}

// rebind replaces each '?' with the dialect placeholder.
func rebind(query string, ph func(int) string) string {
	if ph == nil {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, ph(n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

// Migrate creates tables if missing.
func (s *sqlStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.Error("migration failed", "dialect", s.dialect.name, "error", err)
			return common.NewAppError(common.CodeDatabase, "migrate", fmt.Errorf("%w: %w", common.ErrDatabase, err))
		}
	}
	return nil
}

const claimColumns = `id, status, claimant_name, village, area_ha, fields_json, document_json, content_hash, geometry, warnings_json, created_at, updated_at`

func (s *sqlStore) CreateClaim(ctx context.Context, req CreateClaimRequest) (*entity.Claim, error) {
	c := newClaim(req, s.now())
	fieldsJSON, err := json.Marshal(c.Fields)
	if err != nil {
		return nil, err
	}
	docJSON, err := json.Marshal(c.Document)
	if err != nil {
		return nil, err
	}
	warnJSON, err := json.Marshal(c.Warnings)
	if err != nil {
		return nil, err
	}
	var area sql.NullFloat64
	if a, ok := c.Fields.Area(); ok {
		area = sql.NullFloat64{Float64: a, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO claims (`+claimColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`),
		c.ID.String(), claimStatus(c.Fields), c.Fields.ClaimantName(), c.Fields.Village(), area,
		string(fieldsJSON), string(docJSON), c.Document.ContentHash, string(c.Geometry), string(warnJSON),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		s.logger.Error("failed to insert claim", "claim_id", c.ID, "error", err)
		return nil, dbError("insert claim", err)
	}
	return c, nil
}

func (s *sqlStore) GetClaim(ctx context.Context, id uuid.UUID) (*entity.Claim, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+claimColumns+` FROM claims WHERE id = ?`), id.String())
	c, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		s.logger.Error("failed to get claim", "claim_id", id, "error", err)
		return nil, dbError("get claim", err)
	}
	return c, nil
}

func (s *sqlStore) GetClaimByHash(ctx context.Context, contentHash string) (*entity.Claim, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+claimColumns+` FROM claims WHERE content_hash = ? AND content_hash <> '' ORDER BY created_at, id LIMIT 1`),
		contentHash)
	c, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError(common.CodeNotFound, "no claim for content hash", common.ErrNotFound)
	}
	if err != nil {
		return nil, dbError("get claim by hash", err)
	}
	return c, nil
}

func (s *sqlStore) ListClaims(ctx context.Context, filter ClaimFilter) ([]*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		s.logger.Error("failed to list claims", "status", filter.Status, "error", err)
		return nil, dbError("list claims", err)
	}
	defer rows.Close()

	var out []*entity.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, dbError("scan claim", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list claims", err)
	}
	if filter.Limit <= 0 && filter.Offset > 0 {
		out = page(out, 0, filter.Offset)
	}
	return out, nil
}

func (s *sqlStore) SaveRecommendations(ctx context.Context, claimID uuid.UUID, recs []entity.Recommendation) ([]entity.RecommendationRecord, error) {
	if _, err := s.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	rows := newRecords(claimID, recs, s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt := s.q(`INSERT INTO recommendations (id, run_id, claim_id, rank, scheme_id, scheme_name, score, matched_json, unmatched_json, indeterminate_json, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	for _, r := range rows {
		matched, _ := json.Marshal(r.MatchedRules)
		unmatched, _ := json.Marshal(r.UnmatchedRules)
		indeterminate, _ := json.Marshal(r.IndeterminateRules)
		if _, err := tx.ExecContext(ctx, stmt,
			r.ID.String(), r.RunID.String(), claimID.String(), r.Rank, r.SchemeID, r.SchemeName, r.Score,
			string(matched), string(unmatched), string(indeterminate), r.CreatedAt,
		); err != nil {
			s.logger.Error("failed to insert recommendation", "claim_id", claimID, "scheme_id", r.SchemeID, "error", err)
			return nil, dbError("insert recommendation", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, dbError("commit", err)
	}
	return rows, nil
}

func (s *sqlStore) ListRecommendations(ctx context.Context, claimID uuid.UUID) ([]entity.RecommendationRecord, error) {
	if _, err := s.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, run_id, rank, scheme_id, scheme_name, score, matched_json, unmatched_json, indeterminate_json, created_at
		FROM recommendations WHERE claim_id = ? ORDER BY created_at DESC, run_id, rank`), claimID.String())
	if err != nil {
		return nil, dbError("list recommendations", err)
	}
	defer rows.Close()

	out := []entity.RecommendationRecord{}
	for rows.Next() {
		var (
			r                                 entity.RecommendationRecord
			id, runID                         string
			matched, unmatched, indeterminate string
		)
		if err := rows.Scan(&id, &runID, &r.Rank, &r.SchemeID, &r.SchemeName, &r.Score,
			&matched, &unmatched, &indeterminate, &r.CreatedAt); err != nil {
			return nil, dbError("scan recommendation", err)
		}
		r.ID, _ = uuid.Parse(id)
		r.RunID, _ = uuid.Parse(runID)
		r.ClaimID = claimID
		for _, col := range []struct {
			raw string
			dst *[]string
		}{
			{matched, &r.MatchedRules},
			{unmatched, &r.UnmatchedRules},
			{indeterminate, &r.IndeterminateRules},
		} {
			if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
				return nil, dbError("decode recommendation", fmt.Errorf("recommendation %s rules: %w", id, err))
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	err := s.db.Close()
	if s.onClose != nil {
		s.onClose()
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClaim(row scanner) (*entity.Claim, error) {
	var (
		c                               entity.Claim
		id, status, name, village       string
		area                            sql.NullFloat64
		fieldsJSON, docJSON, hash, geom string
		warnJSON                        string
	)
	if err := row.Scan(&id, &status, &name, &village, &area, &fieldsJSON, &docJSON, &hash, &geom, &warnJSON,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("claim id %q: %w", id, err)
	}
	c.ID = parsed
	if err := json.Unmarshal([]byte(fieldsJSON), &c.Fields); err != nil {
		return nil, fmt.Errorf("claim %s fields: %w", id, err)
	}
	if err := json.Unmarshal([]byte(docJSON), &c.Document); err != nil {
		return nil, fmt.Errorf("claim %s document: %w", id, err)
	}
	if warnJSON != "" && warnJSON != "null" {
		if err := json.Unmarshal([]byte(warnJSON), &c.Warnings); err != nil {
			return nil, fmt.Errorf("claim %s warnings: %w", id, err)
		}
	}
	c.Geometry = json.RawMessage(geom)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func dbError(op string, err error) error {
	return common.NewAppError(common.CodeDatabase, op, fmt.Errorf("%w: %w", common.ErrDatabase, err))
}
