package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language    string // default "eng"
	TessdataDir string
	DPI         int // rasterization DPI for PDF pages, default 300
	MaxPages    int // 0 = no limit
	PageWorkers int // concurrent pages per PDF, default 4

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default
}

// TextExtractor turns a raw document into per-page text.
type TextExtractor interface {
	Extract(ctx context.Context, doc entity.RawDocument) (entity.ExtractedText, error)
}

type Extractor struct {
	cfg    Config
	runner Runner
	engine Engine
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the process runner used for pdftoppm and the CLI engine.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithEngine replaces the OCR engine.
func WithEngine(eng Engine) Option {
	return func(e *Extractor) {
		if eng != nil {
			e.engine = eng
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 4
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	if e.engine == nil {
		e.engine = NewCLIEngine(cfg, e.runner)
	}
	return e
}

// Extract picks a strategy based on the document media type.
func (e *Extractor) Extract(ctx context.Context, doc entity.RawDocument) (entity.ExtractedText, error) {
	start := time.Now()
	ext, ok := constants.ParseMediaType(doc.MediaType)
	if !ok {
		e.logger.Error("unsupported media type", "media_type", doc.MediaType)
		return entity.ExtractedText{}, common.NewAppError(common.CodeUnsupportedFormat,
			fmt.Sprintf("media type %q", doc.MediaType), common.ErrUnsupportedFormat)
	}
	e.logger.Debug("starting ocr extraction", "ext", ext, "bytes", len(doc.Bytes), "engine", e.engine.Name())

	var (
		pages    []string
		warnings []string
		method   string
		err      error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		method = "pdf-ocr"
		pages, warnings, err = e.extractPDF(ctx, doc.Bytes)
	default:
		method = "image-ocr"
		var page string
		page, err = e.extractImage(ctx, doc.Bytes, ext)
		pages = []string{page}
	}
	if err != nil {
		e.logger.Warn("ocr extraction failed", "ext", ext, "error", err)
		return entity.ExtractedText{}, err
	}

	out := entity.NewExtractedText(pages, warnings, method, e.cfg.Language, time.Since(start))
	if out.Empty() {
		return entity.ExtractedText{}, failed("no page yielded text", nil)
	}
	e.logger.Info("ocr extraction ok",
		"method", method,
		"pages", out.PageCount(),
		"warnings", len(warnings),
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

func failed(msg string, cause error) error {
	if cause != nil {
		return common.NewAppError(common.CodeExtractionFailed, msg, fmt.Errorf("%w: %w", common.ErrExtractionFailed, cause))
	}
	return common.NewAppError(common.CodeExtractionFailed, msg, common.ErrExtractionFailed)
}
