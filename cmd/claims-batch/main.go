package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/app"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/export"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir     = flag.String("dir", "", "directory of claim documents (required)")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		driver  = flag.String("store", "", "store driver: memory, sqlite or postgres (defaults to STORE_DRIVER)")
		status  = flag.String("status", "", "only export claims with this status")
		workers = flag.Int("workers", 1, "files processed concurrently")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "claims.xlsx")
	}
	var statusFilter constants.ClaimStatus
	if *status != "" {
		s, _, ok := constants.Canonicalize(*status)
		if !ok {
			printError("Error: unknown --status %q\n", *status)
			os.Exit(1)
		}
		statusFilter = s
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()
	if *driver != "" {
		cfg.Store.Driver = *driver
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := app.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	textExtractor, err := app.NewTextExtractor(cfg.OCR, logger)
	if err != nil {
		logger.Error("failed to build OCR extractor", "error", err)
		os.Exit(1)
	}
	processor, err := app.NewProcessor(cfg, textExtractor, store, logger)
	if err != nil {
		logger.Error("failed to load scheme catalog", "error", err)
		os.Exit(1)
	}
	ingestor := ingest.NewFSIngestor(processor, cfg.Ingest.MaxBytes, logger, ingest.WithDirWorkers(*workers))

	logger.Info("starting ingestion", "dir", *dir)
	results, stats, err := ingestor.IngestDirectory(ctx, *dir, true)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}
	logger.Info("ingestion complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated)

	recommended, failures := 0, 0
	for _, result := range results {
		if result.Err != "" {
			continue
		}
		claimID, err := uuid.Parse(result.ClaimID)
		if err != nil {
			logger.Error("failed to parse claim ID", "claim_id", result.ClaimID, "error", err)
			failures++
			continue
		}
		recs, err := processor.Recommend(ctx, claimID)
		if err != nil {
			logger.Error("failed to recommend schemes", "claim_id", claimID, "error", err)
			failures++
			continue
		}
		logger.Info("recommended schemes", "claim_id", claimID, "file", result.Filename, "count", len(recs))
		recommended++
	}

	logger.Info("exporting to XLSX", "output", *out)
	xlsxBytes, err := export.NewService(store, store, logger).ExportClaimsXLSX(ctx, statusFilter)
	if err != nil {
		logger.Error("failed to export claims", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files matched: %d\n", stats.Matched)
	fmt.Printf("- Claims recommended: %d\n", recommended)
	fmt.Printf("- Failures: %d\n", int(stats.Failed)+failures)
	fmt.Printf("- Output: %s\n", *out)
}
