package ingest

import (
	"context"
	"io"
	"time"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/entity"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/pipeline"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	Filename     string
	ClaimID      string
	Deduplicated bool
	HashHex      string
	FileExt      string
	IngestedAt   time.Time
	Warnings     []string
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// DocumentProcessor turns a validated document into a stored claim.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, doc entity.RawDocument, ref entity.DocumentRef) (pipeline.Result, error)
}

// Ingestor is the behavior the transports depend on.
type Ingestor interface {
	// IngestPath processes a single file.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestUpload processes an uploaded document body.
	IngestUpload(ctx context.Context, filename string, body io.Reader) (IngestionResult, error)
	// IngestDirectory processes all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
