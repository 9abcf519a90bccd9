package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
)

// IngestDirectory ingests every claim document under root. Results follow
// walk order; a failing file is recorded in its result and does not stop the
// walk. Only cancellation aborts.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.NewAppError(common.CodeInvalidInput, "root_path is required", common.ErrInvalidInput)
	}

	results, stats, err := i.scan(ctx, root, skipHidden)
	if err != nil {
		return results, stats, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.dirWorkers)
	for idx := range results {
		if results[idx].Err != "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := results[idx].SourcePath
			r, err := i.IngestPath(gctx, path)
			if err != nil {
				r.SourcePath = path
				r.Err = err.Error()
			}
			results[idx] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, stats, common.WrapError(err, "ingest directory")
	}

	for _, r := range results {
		switch {
		case r.Err != "":
			stats.Failed++
		case r.Deduplicated:
			stats.Succeeded++
			stats.Deduplicated++
		default:
			stats.Succeeded++
		}
	}
	i.logger.Info("directory ingested",
		"root", root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

// scan walks root and returns a pending result per matched file, plus a
// failed result per unreadable entry.
func (i *FSIngestor) scan(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	var results []IngestionResult
	var stats DirStats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		results = append(results, IngestionResult{SourcePath: path, Filename: d.Name()})
		return nil
	})
	if err != nil {
		return results, stats, common.WrapError(err, "walk")
	}
	return results, stats, nil
}
