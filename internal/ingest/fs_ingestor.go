package ingest

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
)

// FSIngestor validates documents from the local filesystem or uploads and
// hands them to the claim pipeline.
type FSIngestor struct {
	processor  DocumentProcessor
	maxBytes   int64
	dirWorkers int
	logger     *slog.Logger
}

type Option func(*FSIngestor)

// WithDirWorkers sets how many files IngestDirectory processes at once.
// Identical documents processed concurrently may both create claims, so
// keep the default of 1 unless the directory is known to be deduplicated.
func WithDirWorkers(n int) Option {
	return func(i *FSIngestor) {
		if n > 0 {
			i.dirWorkers = n
		}
	}
}

func NewFSIngestor(processor DocumentProcessor, maxBytes int64, logger *slog.Logger, opts ...Option) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytes
	}
	i := &FSIngestor{processor: processor, maxBytes: maxBytes, dirWorkers: 1, logger: logger}
	for _, o := range opts {
		o(i)
	}
	return i
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	doc, ref, err := ReadFile(path, i.maxBytes)
	if err != nil {
		i.logger.Warn("rejected file", "path", path, "error", err)
		return IngestionResult{SourcePath: path}, err
	}
	return i.process(ctx, doc, ref)
}

func (i *FSIngestor) IngestUpload(ctx context.Context, filename string, body io.Reader) (IngestionResult, error) {
	doc, ref, err := ReadDocument(filename, body, i.maxBytes)
	if err != nil {
		i.logger.Warn("rejected upload", "filename", filename, "error", err)
		return IngestionResult{Filename: filename}, err
	}
	return i.process(ctx, doc, ref)
}

func (i *FSIngestor) process(ctx context.Context, doc entity.RawDocument, ref entity.DocumentRef) (IngestionResult, error) {
	out := IngestionResult{
		SourcePath: ref.SourcePath,
		Filename:   ref.Filename,
		HashHex:    ref.ContentHash,
		FileExt:    ref.MediaType,
		IngestedAt: time.Now().UTC(),
	}
	res, err := i.processor.ProcessDocument(ctx, doc, ref)
	if err != nil {
		return out, err
	}
	out.ClaimID = res.Claim.ID.String()
	out.Deduplicated = res.Deduplicated
	out.Warnings = res.Text.Warnings()
	i.logger.Info("document ingested",
		"claim_id", out.ClaimID,
		"file", out.Filename,
		"deduplicated", out.Deduplicated,
	)
	return out, nil
}
