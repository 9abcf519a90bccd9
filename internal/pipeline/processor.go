package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/catalog"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/ocr"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/recommend"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/repository"
)

// FieldExtractor turns OCR text into claim fields.
type FieldExtractor interface {
	Extract(text entity.ExtractedText) entity.ClaimFields
}

// Store is the slice of persistence the pipeline needs.
type Store interface {
	repository.ClaimRepository
	repository.RecommendationRepository
}

// Result is the outcome of processing one document.
type Result struct {
	Claim        *entity.Claim
	Text         entity.ExtractedText
	Deduplicated bool
}

// Processor coordinates OCR, field extraction and persistence, and runs
// recommendations for stored claims.
type Processor struct {
	logger  *slog.Logger
	ocr     ocr.TextExtractor
	fields  FieldExtractor
	store   Store
	engine  *recommend.Engine
	catalog *catalog.Catalog
}

func NewProcessor(
	logger *slog.Logger,
	textExtractor ocr.TextExtractor,
	fieldExtractor FieldExtractor,
	store Store,
	engine *recommend.Engine,
	cat *catalog.Catalog,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:  logger,
		ocr:     textExtractor,
		fields:  fieldExtractor,
		store:   store,
		engine:  engine,
		catalog: cat,
	}
}

// Extract runs OCR and field extraction without touching the store.
func (p *Processor) Extract(ctx context.Context, doc entity.RawDocument) (entity.ExtractedText, entity.ClaimFields, error) {
	text, err := p.ocr.Extract(ctx, doc)
	if err != nil {
		return entity.ExtractedText{}, nil, err
	}
	fields := p.fields.Extract(text)
	p.logger.Debug("fields extracted",
		"pages", text.PageCount(),
		"method", text.Method,
		"claimant_name", fields.ClaimantName(),
		"village", fields.Village(),
	)
	return text, fields, nil
}

// ProcessDocument extracts a claim from doc and persists it. A document whose
// content hash is already stored returns the existing claim.
func (p *Processor) ProcessDocument(ctx context.Context, doc entity.RawDocument, ref entity.DocumentRef) (Result, error) {
	logger := common.Logger(ctx, p.logger)
	if ref.ContentHash != "" {
		existing, err := p.store.GetClaimByHash(ctx, ref.ContentHash)
		switch {
		case err == nil:
			logger.Info("document already processed", "claim_id", existing.ID, "hash", ref.ContentHash)
			return Result{Claim: existing, Deduplicated: true}, nil
		case !errors.Is(err, common.ErrNotFound):
			return Result{}, err
		}
	}

	text, fields, err := p.Extract(ctx, doc)
	if err != nil {
		logger.Error("processor.ocr.failed", "file", ref.Filename, "err", err)
		return Result{}, err
	}
	if !fields.Complete() {
		return Result{}, common.NewAppError(common.CodeIncompleteClaim, "missing required field extraction", common.ErrIncompleteClaim)
	}

	claim, err := p.store.CreateClaim(ctx, repository.CreateClaimRequest{
		Fields:   fields,
		Document: ref,
		Warnings: text.Warnings(),
	})
	if err != nil {
		logger.Error("processor.persist.failed", "file", ref.Filename, "err", err)
		return Result{}, err
	}
	logger.Info("claim created",
		"claim_id", claim.ID,
		"file", ref.Filename,
		"pages", text.PageCount(),
		"warnings", len(text.Warnings()),
	)
	return Result{Claim: claim, Text: text}, nil
}

// Score ranks the catalog against fields without persisting anything.
func (p *Processor) Score(claimID uuid.UUID, fields entity.ClaimFields) []entity.Recommendation {
	return p.engine.Recommend(claimID, fields, p.catalog.Schemes())
}

// Recommend re-hydrates a stored claim, scores it, and records the run.
func (p *Processor) Recommend(ctx context.Context, claimID uuid.UUID) ([]entity.RecommendationRecord, error) {
	claim, err := p.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	recs := p.Score(claim.ID, claim.Fields)
	saved, err := p.store.SaveRecommendations(ctx, claim.ID, recs)
	if err != nil {
		return nil, common.WrapError(err, "save recommendations")
	}
	common.Logger(ctx, p.logger).Info("recommendations computed", "claim_id", claim.ID, "count", len(saved))
	return saved, nil
}

// History returns every recorded recommendation run for a claim, newest first.
func (p *Processor) History(ctx context.Context, claimID uuid.UUID) ([]entity.RecommendationRecord, error) {
	return p.store.ListRecommendations(ctx, claimID)
}

// Catalog exposes the read-only scheme catalog.
func (p *Processor) Catalog() *catalog.Catalog { return p.catalog }
