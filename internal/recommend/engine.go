// Package recommend ranks schemes for a claim by weighted rule matching.
package recommend

import (
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
)

const DefaultMinScore = 0.3

// Outcome is the result of one rule against one claim.
type Outcome int

const (
	Unmatched Outcome = iota
	Matched
	Indeterminate
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unmatched"
	}
}

type Config struct {
	MinScore float64 // schemes scoring below are dropped; <= 0 means DefaultMinScore
	Limit    int     // top-N cap; 0 = no cap
}

// Engine is stateless apart from its config; safe for concurrent use.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.Limit < 0 {
		cfg.Limit = 0
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Evaluate applies one rule. A missing value fails the rule; a value present
// with zero confidence cannot be trusted either way.
func Evaluate(rule entity.Rule, fields entity.ClaimFields) Outcome {
	f := fields.Get(rule.Predicate.Field())
	if !f.Present() {
		return Unmatched
	}
	if f.Confidence <= 0 {
		return Indeterminate
	}
	if rule.Predicate.Test(f) {
		return Matched
	}
	return Unmatched
}

// Score evaluates every rule of scheme. excluded is true when a mandatory
// rule is unmatched; the returned recommendation is then meaningless.
func Score(claimID uuid.UUID, fields entity.ClaimFields, scheme entity.Scheme) (rec entity.Recommendation, excluded bool) {
	rec = entity.Recommendation{
		SchemeID:           scheme.ID,
		SchemeName:         scheme.Name,
		ClaimID:            claimID,
		MatchedRules:       []string{},
		UnmatchedRules:     []string{},
		IndeterminateRules: []string{},
	}
	var total, earned float64
	for _, r := range scheme.Rules {
		w := r.Weight
		if w <= 0 {
			w = 1
		}
		total += w
		switch Evaluate(r, fields) {
		case Matched:
			earned += w
			rec.MatchedRules = append(rec.MatchedRules, r.Name)
		case Indeterminate:
			earned += 0.5 * w
			rec.IndeterminateRules = append(rec.IndeterminateRules, r.Name)
		default:
			rec.UnmatchedRules = append(rec.UnmatchedRules, r.Name)
			if r.Mandatory {
				excluded = true
			}
		}
	}
	if total > 0 {
		rec.Score = earned / total
	}
	return rec, excluded
}

// Recommend ranks schemes for a claim, highest score first; ties keep catalog
// order. It never fails: an empty catalog or a claim with no usable field
// yields an empty list.
func (e *Engine) Recommend(claimID uuid.UUID, fields entity.ClaimFields, schemes []entity.Scheme) []entity.Recommendation {
	out := make([]entity.Recommendation, 0, len(schemes))
	if len(schemes) == 0 {
		return out
	}
	if !fields.AnyPopulated() {
		e.logger.Info("claim has no usable fields; skipping recommendation", "claim_id", claimID)
		return out
	}

	for _, s := range schemes {
		rec, excluded := Score(claimID, fields, s)
		if excluded {
			e.logger.Debug("scheme excluded by mandatory rule", "claim_id", claimID, "scheme_id", s.ID, "unmatched", rec.UnmatchedRules)
			continue
		}
		if rec.Score < e.cfg.MinScore {
			e.logger.Debug("scheme below threshold", "claim_id", claimID, "scheme_id", s.ID, "score", rec.Score)
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if e.cfg.Limit > 0 && len(out) > e.cfg.Limit {
		out = out[:e.cfg.Limit]
	}
	e.logger.Info("recommendations computed", "claim_id", claimID, "schemes", len(schemes), "recommended", len(out))
	return out
}
