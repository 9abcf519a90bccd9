package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/repository"
)

const (
	ClaimsSheet          = "Claims"
	RecommendationsSheet = "Recommendations"
)

// Service is a small façade over the store that produces XLSX bytes for exports.
type Service struct {
	claims repository.ClaimRepository
	recs   repository.RecommendationRepository
	logger *slog.Logger
}

func NewService(claims repository.ClaimRepository, recs repository.RecommendationRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{claims: claims, recs: recs, logger: logger}
}

// ExportClaimsXLSX returns a workbook with one row per claim (optionally
// filtered by status) and one row per stored recommendation.
func (s *Service) ExportClaimsXLSX(ctx context.Context, status constants.ClaimStatus) ([]byte, error) {
	start := time.Now()

	claims, err := s.claims.ListClaims(ctx, repository.ClaimFilter{Status: status})
	if err != nil {
		return nil, common.WrapError(err, "query claims")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", ClaimsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(RecommendationsSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(ClaimsSheet)
	f.SetActiveSheet(activeIndex)

	writeRow(f, ClaimsSheet, 1, []any{
		"Claim ID", "Claimant Name", "Village", "Area (ha)", "Status",
		"Status Confidence", "Source File", "Content Hash", "Created At", "Warnings",
	})
	writeRow(f, RecommendationsSheet, 1, []any{
		"Claim ID", "Run ID", "Rank", "Scheme ID", "Scheme Name", "Score",
		"Matched Rules", "Unmatched Rules", "Indeterminate Rules", "Created At",
	})

	recRow := 2
	for i, c := range claims {
		writeRow(f, ClaimsSheet, i+2, claimRow(c))

		history, err := s.recs.ListRecommendations(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("query recommendations for %s: %w", c.ID, err)
		}
		for _, r := range history {
			writeRow(f, RecommendationsSheet, recRow, []any{
				c.ID.String(),
				r.RunID.String(),
				r.Rank,
				r.SchemeID,
				r.SchemeName,
				r.Score,
				strings.Join(r.MatchedRules, ", "),
				strings.Join(r.UnmatchedRules, ", "),
				strings.Join(r.IndeterminateRules, ", "),
				r.CreatedAt.Format(time.RFC3339),
			})
			recRow++
		}
	}

	_ = f.SetColWidth(ClaimsSheet, "A", "A", 38) // id
	_ = f.SetColWidth(ClaimsSheet, "B", "C", 24) // name, village
	_ = f.SetColWidth(ClaimsSheet, "D", "F", 12)
	_ = f.SetColWidth(ClaimsSheet, "G", "G", 40) // path
	_ = f.SetColWidth(ClaimsSheet, "H", "H", 66) // hash
	_ = f.SetColWidth(ClaimsSheet, "I", "I", 22)
	_ = f.SetColWidth(ClaimsSheet, "J", "J", 48)
	_ = f.SetColWidth(RecommendationsSheet, "A", "B", 38)
	_ = f.SetColWidth(RecommendationsSheet, "D", "E", 28)
	_ = f.SetColWidth(RecommendationsSheet, "G", "I", 32)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, common.WrapError(err, "xlsx write")
	}

	s.logger.Info("export.xlsx.ok",
		"status", string(status),
		"claims", len(claims),
		"recommendations", recRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func claimRow(c *entity.Claim) []any {
	var area any = ""
	if a, ok := c.Fields.Area(); ok {
		area = a
	}
	status := c.Fields.Get(constants.FieldStatus)
	statusText := ""
	if status.Text != nil {
		statusText = *status.Text
	}
	source := c.Document.SourcePath
	if source == "" {
		source = c.Document.Filename
	}
	return []any{
		c.ID.String(),
		c.Fields.ClaimantName(),
		c.Fields.Village(),
		area,
		statusText,
		status.Confidence,
		source,
		c.Document.ContentHash,
		c.CreatedAt.Format(time.RFC3339),
		truncate(strings.Join(c.Warnings, "; "), 140),
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
