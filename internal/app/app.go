package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/catalog"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/fields"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/ocr"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/pipeline"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/recommend"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/repository"
)

// OpenStore opens the store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (repository.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case "", "memory":
		logger.Warn("using in-memory store; claims are lost on exit")
		return repository.NewMemoryStore(logger), nil
	case "sqlite":
		return repository.NewSQLiteStore(ctx, cfg.SQLitePath, logger)
	case "postgres":
		return repository.NewPostgresStore(ctx, repository.Config{
			DSN:              cfg.DSN,
			MaxConns:         cfg.MaxConns,
			MinConns:         cfg.MinConns,
			MaxConnLifetime:  cfg.MaxConnLifetime,
			MaxConnIdleTime:  cfg.MaxConnIdleTime,
			DialTimeout:      cfg.DialTimeout,
			StatementTimeout: cfg.StatementTimeout,
		}, logger)
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown store driver %q", cfg.Driver), common.ErrInvalidInput)
	}
}

// NewTextExtractor builds the OCR extractor with the configured engine.
func NewTextExtractor(cfg common.OCRConfig, logger *slog.Logger, opts ...ocr.Option) (*ocr.Extractor, error) {
	ocrCfg := ocr.Config{
		Pdftoppm:    cfg.Pdftoppm,
		Tesseract:   cfg.Tesseract,
		Language:    cfg.Language,
		TessdataDir: cfg.TessdataDir,
		DPI:         cfg.DPI,
		MaxPages:    cfg.MaxPages,
		PageWorkers: cfg.PageWorkers,
		PSM:         cfg.PSM,
		OEM:         cfg.OEM,
	}
	if cfg.Engine == "gosseract" {
		eng, err := ocr.NewGosseractEngine(cfg.Language, cfg.TessdataDir)
		if err != nil {
			return nil, common.NewAppError(common.CodeConfig, "OCR_ENGINE=gosseract", err)
		}
		opts = append(opts, ocr.WithEngine(eng))
	}
	return ocr.NewExtractor(ocrCfg, logger, opts...), nil
}

// NewProcessor loads the catalog and wires the claim pipeline.
func NewProcessor(cfg *common.Config, text ocr.TextExtractor, store pipeline.Store, logger *slog.Logger) (*pipeline.Processor, error) {
	cat, err := catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		return nil, err
	}
	engine := recommend.NewEngine(recommend.Config{
		MinScore: cfg.Recommend.MinScore,
		Limit:    cfg.Recommend.Limit,
	}, logger)
	return pipeline.NewProcessor(logger, text, fields.NewExtractor(logger), store, engine, cat), nil
}
