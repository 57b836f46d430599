package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/paperflow/internal/async"
	"github.com/joseph-ayodele/paperflow/internal/common"
	"github.com/joseph-ayodele/paperflow/internal/export"
	"github.com/joseph-ayodele/paperflow/internal/ingest"
	"github.com/joseph-ayodele/paperflow/internal/ocr"
	"github.com/joseph-ayodele/paperflow/internal/pipeline"
	"github.com/joseph-ayodele/paperflow/internal/repository"
	"github.com/joseph-ayodele/paperflow/internal/server"
	"github.com/joseph-ayodele/paperflow/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *repository.Store
	switch cfg.Database.Driver {
	case "sqlite":
		s, err := repository.OpenSQLite(cfg.Database.DSN, logger)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		store = s
	default:
		s, pool, err := repository.OpenPostgres(ctx, repository.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = s
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	if err := store.HealthCheck(ctx, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	files, err := storage.NewDiskStore(cfg.Storage.Root, logger)
	if err != nil {
		logger.Error("failed to init file store", "error", err)
		os.Exit(1)
	}

	docsRepo := repository.NewDocumentRepository(store, logger)
	presetsRepo := repository.NewPresetRepository(store, logger)

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:  cfg.OCR.Pdftotext,
		Pdftoppm:   cfg.OCR.Pdftoppm,
		Tesseract:  cfg.OCR.Tesseract,
		Language:   cfg.OCR.Language,
		DPI:        cfg.OCR.DPI,
		MaxPages:   cfg.OCR.MaxPages,
		MinTextLen: cfg.OCR.MinTextLen,
	}, logger)

	processor := pipeline.NewProcessor(logger, extractor, files, docsRepo)
	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)

	ingestSvc := ingest.NewService(files, docsRepo, queue, logger)

	// Inbox watcher (optional): any PDF dropped into a configured directory
	// is registered and queued as if it had been uploaded.
	if len(cfg.Ingest.InboxDirs) > 0 {
		paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       cfg.Ingest.InboxDirs,
			InitialScan: cfg.Ingest.InitialScan,
			Debounce:    cfg.Ingest.Debounce,
		}, logger)
		if err != nil {
			logger.Error("failed to start inbox watcher", "error", err)
			os.Exit(1)
		}
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case path, ok := <-paths:
					if !ok {
						return
					}
					if _, err := ingestSvc.RegisterPath(ctx, "default", path); err != nil {
						logger.Warn("inbox registration failed", "path", path, "error", err)
					}
				case werr, ok := <-errs:
					if !ok {
						return
					}
					logger.Warn("inbox watcher error", "error", werr)
				}
			}
		}()
	}

	exporter := export.NewService(logger)
	docHandler := server.NewDocumentHandler(ingestSvc, docsRepo, presetsRepo, queue, exporter, cfg.Server, logger)
	presetHandler := server.NewPresetHandler(presetsRepo, logger)

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewRouter(docHandler, presetHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("paperflow listening", "addr", cfg.Server.HTTPAddr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
}
