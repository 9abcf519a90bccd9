package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/forest-rights-tracker/internal/app"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/async"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/common"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/export"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/ingest"
	"github.com/joseph-ayodele/forest-rights-tracker/internal/server"
)

func main() {
	// Structured text logger without time/level noise
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("close store", "error", cerr)
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = store.Ping(pingCtx)
	cancel()
	if err != nil {
		logger.Error("failed to ping store", "error", err)
		os.Exit(1)
	}

	textExtractor, err := app.NewTextExtractor(cfg.OCR, logger)
	if err != nil {
		logger.Error("failed to build OCR extractor", "error", err)
		os.Exit(1)
	}
	processor, err := app.NewProcessor(cfg, textExtractor, store, logger)
	if err != nil {
		logger.Error("failed to load scheme catalog", "path", cfg.Catalog.Path, "error", err)
		os.Exit(1)
	}

	ingestor := ingest.NewFSIngestor(processor, cfg.Ingest.MaxBytes, logger)
	queue := async.NewProcessorQueue(ingestor, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(cfg.Ingest.ProcessTimeout),
	)

	if len(cfg.Ingest.WatchDirs) > 0 {
		if err := watch(ctx, cfg.Ingest, queue, logger); err != nil {
			logger.Error("failed to start directory watcher", "dirs", cfg.Ingest.WatchDirs, "error", err)
			os.Exit(1)
		}
	}

	grpcServer, healthServer := server.NewGRPCServer(server.NewClaimsService(processor, ingestor, store, logger), logger)
	if addr := cfg.Server.GRPCAddr; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", addr, "error", err)
			os.Exit(1)
		}
		logger.Info("claimsd grpc listening", "addr", addr)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC serve error", "error", err)
				stop()
			}
		}()
	}

	exporter := export.NewService(store, store, logger)
	httpServer := server.NewHTTPServer(processor, ingestor, store, exporter, cfg.Server, cfg.Ingest.MaxBytes, logger)
	if addr := cfg.Server.HTTPAddr; addr != "" {
		go func() {
			if err := httpServer.Start(addr); err != nil {
				logger.Error("http serve error", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}

// watch feeds documents dropped into the watch directories into the queue.
func watch(ctx context.Context, cfg common.IngestConfig, queue async.Queue, logger *slog.Logger) error {
	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       cfg.WatchDirs,
		InitialScan: true,
		Debounce:    cfg.Debounce,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case p, ok := <-paths:
				if !ok {
					return
				}
				job := async.Job{Path: p, SubmittedAt: time.Now(), TraceID: uuid.NewString()}
				if err := queue.Enqueue(ctx, job); err != nil {
					logger.Warn("dropping watched file", "path", p, "error", err)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Error("watcher error", "error", err)
			}
		}
	}()
	logger.Info("watching directories", "dirs", cfg.WatchDirs)
	return nil
}
