package ocr

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Acquisition failure modes. Both are fatal for the current processing
// attempt; ErrOCRUnavailable points at a deployment problem (missing or
// broken poppler/tesseract) and is logged for operators, ErrNoText is an
// expected outcome for image-only documents with nothing recognizable.
var (
	ErrNoText         = errors.New("no text extracted")
	ErrOCRUnavailable = errors.New("ocr unavailable")
)

// Config holds the acquisition parameters. It is passed by value so tests
// can vary language, DPI and thresholds per call.
type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language   string // tesseract language, default "por"
	DPI        int    // rasterization DPI for scanned PDFs, default 300
	MaxPages   int    // 0 = no limit
	MinTextLen int    // native text shorter than this triggers OCR
}

// Result summarizes one acquisition attempt.
type Result struct {
	Text     string
	Pages    int
	OCRUsed  bool
	Method   string // "pdf-text" | "pdf-ocr"
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "por"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the command runner; tests use this to stub the tools.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Acquire extracts plain text from a PDF on disk. Native per-page text is
// tried first; when it comes up short of MinTextLen, or forceOCR is set, the
// pages are rasterized and OCRed in order instead. Acquire never mutates
// document state; the orchestrator owns status transitions.
func (e *Extractor) Acquire(ctx context.Context, path string, forceOCR bool) (Result, error) {
	start := time.Now()
	res := Result{Method: "pdf-text"}

	if !forceOCR {
		text, pages, warns, err := e.pdfToText(ctx, path)
		res.Warnings = append(res.Warnings, warns...)
		if err != nil {
			// pdftotext itself failing is a tooling problem, not an
			// empty document.
			res.Duration = time.Since(start)
			return res, wrapUnavailable("pdftotext", err)
		}
		text = strings.TrimSpace(text)
		if len(text) >= e.cfg.MinTextLen && text != "" {
			res.Text = text
			res.Pages = pages
			res.Duration = time.Since(start)
			return res, nil
		}
		e.logger.Info("ocr_fallback", "path", path, "native_len", len(text), "min_len", e.cfg.MinTextLen)
	}

	res.Method = "pdf-ocr"
	res.OCRUsed = true
	text, pages, warns, err := e.pdfToOCR(ctx, path)
	res.Warnings = append(res.Warnings, warns...)
	res.Pages = pages
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return res, ErrNoText
	}
	res.Text = text
	return res, nil
}
