package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperflow/constants"
	"github.com/joseph-ayodele/paperflow/internal/common"
	"github.com/joseph-ayodele/paperflow/internal/entity"
	"github.com/joseph-ayodele/paperflow/internal/extract"
	"github.com/joseph-ayodele/paperflow/internal/ocr"
	"github.com/joseph-ayodele/paperflow/internal/repository"
	"github.com/joseph-ayodele/paperflow/internal/search"
)

// TextAcquirer is the acquisition stage contract; *ocr.Extractor satisfies
// it, tests substitute fakes.
type TextAcquirer interface {
	Acquire(ctx context.Context, path string, forceOCR bool) (ocr.Result, error)
}

// PathResolver resolves a stored file reference to a local path.
type PathResolver interface {
	Path(ref string) string
}

// Result summarizes one successful processing run.
type Result struct {
	DocumentID uuid.UUID
	Fields     extract.Fields
	OCRUsed    bool
	Report     extract.Report
}

// Processor drives acquisition, extraction and normalization for one
// document and owns its status transitions.
type Processor struct {
	logger   *slog.Logger
	acquirer TextAcquirer
	files    PathResolver
	docs     repository.DocumentRepository
}

func NewProcessor(logger *slog.Logger, acquirer TextAcquirer, files PathResolver, docs repository.DocumentRepository) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, acquirer: acquirer, files: files, docs: docs}
}

// Process runs the pipeline for docID. Reprocessing is always allowed from
// PROCESSED and FAILED; a document already claimed by another worker yields
// common.ErrConflict and nothing is written. On acquisition failure the
// document goes to FAILED and any previously committed result stays intact.
func (p *Processor) Process(ctx context.Context, docID uuid.UUID, forceOCR bool) (*Result, error) {
	doc, err := p.docs.ClaimProcessing(ctx, docID)
	if err != nil {
		return nil, err
	}

	events := append(doc.ProcessingLog, event(constants.EventProcessStart, "", ""))
	p.logger.Info(constants.EventProcessStart, "document_id", docID, "force_ocr", forceOCR)

	path := p.files.Path(doc.StoredPath)
	res, err := p.acquirer.Acquire(ctx, path, forceOCR)
	if res.OCRUsed {
		events = append(events, event(constants.EventOCRFallback, "", res.Method))
		p.logger.Info(constants.EventOCRFallback, "document_id", docID, "method", res.Method, "pages", res.Pages)
	}
	if err != nil {
		if errors.Is(err, ocr.ErrOCRUnavailable) {
			// deployment problem, not a property of the document
			p.logger.Error("acquisition failed", "document_id", docID, "error", err)
		} else {
			p.logger.Info("acquisition failed", "document_id", docID, "error", err)
		}
		return nil, p.fail(ctx, docID, events, err)
	}

	fields, report := extract.Extract(res.Text)
	for _, field := range report.Matched {
		events = append(events, event(constants.EventExtractOK, field, ""))
		p.logger.Info(constants.EventExtractOK, "document_id", docID, "field", field)
	}
	for _, field := range report.Missing {
		events = append(events, event(constants.EventExtractMissing, field, ""))
		p.logger.Info(constants.EventExtractMissing, "document_id", docID, "field", field)
	}

	extractedJSON, err := fields.Marshal()
	if err != nil {
		return nil, p.fail(ctx, docID, events, fmt.Errorf("encode fields: %w", err))
	}
	if err := extract.ValidateJSON(extractedJSON); err != nil {
		return nil, p.fail(ctx, docID, events, err)
	}

	normalized := search.Normalize(strings.Join(append([]string{res.Text}, fields.TextValues()...), " "))

	events = append(events, event(constants.EventProcessDone, "", res.Method))
	commit := repository.CommitResult{
		ID:              docID,
		RawText:         res.Text,
		ExtractedJSON:   extractedJSON,
		NormalizedText:  normalized,
		OCRUsed:         res.OCRUsed,
		AgeYears:        fields.AgeYears,
		ExperienceYears: fields.ExperienceYears,
		Log:             events,
	}
	if fields.ContactPhone != "" {
		phone := fields.ContactPhone
		commit.ContactPhone = &phone
	}
	if err := p.docs.CommitResult(ctx, commit); err != nil {
		if errors.Is(err, common.ErrConflict) {
			// claim was taken over; the winning attempt's result stands
			p.logger.Warn("stale commit dropped", "document_id", docID)
			return nil, err
		}
		p.logger.Error("commit failed", "document_id", docID, "error", err)
		return nil, err
	}

	p.logger.Info(constants.EventProcessDone,
		"document_id", docID,
		"ocr_used", res.OCRUsed,
		"matched_fields", len(report.Matched),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return &Result{DocumentID: docID, Fields: fields, OCRUsed: res.OCRUsed, Report: report}, nil
}

// fail records the failed attempt. The write uses a detached context so a
// canceled or timed-out run still leaves FAILED behind instead of a document
// stuck in PROCESSING.
func (p *Processor) fail(ctx context.Context, docID uuid.UUID, events []entity.ProcessingEvent, cause error) error {
	events = append(events, event(constants.EventProcessFailed, "", cause.Error()))
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.docs.MarkFailed(writeCtx, docID, cause.Error(), events); err != nil {
		p.logger.Error("failed to record failure", "document_id", docID, "error", err)
	}
	return cause
}

func event(name, field, message string) entity.ProcessingEvent {
	return entity.ProcessingEvent{Event: name, Field: field, Message: message, At: time.Now().UTC()}
}
