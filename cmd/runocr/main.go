package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/app"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/ingest"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/repository"
)

type report struct {
	File            string                  `json:"file"`
	Method          string                  `json:"method"`
	Pages           int                     `json:"pages"`
	Warnings        []string                `json:"warnings,omitempty"`
	Text            string                  `json:"text"`
	Fields          entity.ClaimFields      `json:"fields"`
	Recommendations []entity.Recommendation `json:"recommendations"`
	DurationMS      int64                   `json:"duration_ms"`
}

// runocr runs OCR, field extraction and scoring on a single file without
// persisting anything.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <claim-document>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	doc, ref, err := ingest.ReadFile(path, cfg.Ingest.MaxBytes)
	if err != nil {
		logger.Error("read document", "path", path, "error", err)
		os.Exit(1)
	}

	textExtractor, err := app.NewTextExtractor(cfg.OCR, logger)
	if err != nil {
		logger.Error("build OCR extractor", "error", err)
		os.Exit(1)
	}
	// nothing is stored; the in-memory store only satisfies the processor
	proc, err := app.NewProcessor(cfg, textExtractor, repository.NewMemoryStore(logger), logger)
	if err != nil {
		logger.Error("load scheme catalog", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	text, fields, err := proc.Extract(ctx, doc)
	if err != nil {
		logger.Error("extraction failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	out := report{
		File:            ref.Filename,
		Method:          text.Method,
		Pages:           text.PageCount(),
		Warnings:        text.Warnings(),
		Text:            text.Text(),
		Fields:          fields,
		Recommendations: proc.Score(uuid.Nil, fields),
		DurationMS:      time.Since(start).Milliseconds(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("write report", "error", err)
		os.Exit(1)
	}
}
