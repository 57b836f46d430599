package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/paperflow/internal/common"
	"github.com/joseph-ayodele/paperflow/internal/ocr"
	"github.com/joseph-ayodele/paperflow/internal/pipeline"
	"github.com/joseph-ayodele/paperflow/internal/repository"
	"github.com/joseph-ayodele/paperflow/internal/storage"
)

// runproc processes one stored document synchronously. Handy for retrying
// a FAILED document or inspecting extraction output without the server.
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage", "cmd", "runproc <document-id-uuid> [--force-ocr]")
		os.Exit(2)
	}
	docID, err := uuid.Parse(os.Args[1])
	if err != nil {
		logger.Error("invalid document id (must be UUID)", "arg", os.Args[1], "error", err)
		os.Exit(2)
	}
	forceOCR := len(os.Args) > 2 && os.Args[2] == "--force-ocr"

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var store *repository.Store
	switch cfg.Database.Driver {
	case "sqlite":
		store, err = repository.OpenSQLite(cfg.Database.DSN, logger)
		if err != nil {
			logger.Error("open db", "error", err)
			os.Exit(1)
		}
	default:
		s, pool, oerr := repository.OpenPostgres(ctx, repository.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if oerr != nil {
			logger.Error("open db", "error", oerr)
			os.Exit(1)
		}
		defer pool.Close()
		store = s
	}
	defer store.Close()

	files, err := storage.NewDiskStore(cfg.Storage.Root, logger)
	if err != nil {
		logger.Error("init file store", "error", err)
		os.Exit(1)
	}

	docsRepo := repository.NewDocumentRepository(store, logger)
	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:  cfg.OCR.Pdftotext,
		Pdftoppm:   cfg.OCR.Pdftoppm,
		Tesseract:  cfg.OCR.Tesseract,
		Language:   cfg.OCR.Language,
		DPI:        cfg.OCR.DPI,
		MaxPages:   cfg.OCR.MaxPages,
		MinTextLen: cfg.OCR.MinTextLen,
	}, logger)

	p := pipeline.NewProcessor(logger, extractor, files, docsRepo)

	start := time.Now()
	res, err := p.Process(ctx, docID, forceOCR)
	dur := time.Since(start)

	if err != nil {
		logger.Error("processing failed",
			"document_id", docID, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("processing OK",
		"document_id", res.DocumentID,
		"ocr_used", res.OCRUsed,
		"matched", res.Report.Matched,
		"missing", res.Report.Missing,
		"duration_ms", dur.Milliseconds(),
	)
}
