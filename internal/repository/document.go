package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperflow/constants"
	"github.com/joseph-ayodele/paperflow/internal/common"
	"github.com/joseph-ayodele/paperflow/internal/entity"
	"github.com/joseph-ayodele/paperflow/internal/extract"
	"github.com/joseph-ayodele/paperflow/internal/search"
)

// CommitResult carries every derived field of one successful processing
// attempt. All of it is written in one statement: either the whole result
// lands or none of it does.
type CommitResult struct {
	ID              uuid.UUID
	RawText         string
	ExtractedJSON   []byte
	NormalizedText  string
	OCRUsed         bool
	ContactPhone    *string
	AgeYears        *int
	ExperienceYears *int
	Log             []entity.ProcessingEvent
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Document, error)
	// ClaimProcessing transitions a document to PROCESSING and returns the
	// claimed row. A document already claimed yields common.ErrConflict.
	ClaimProcessing(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	// MarkFailed records a failed attempt. Previously committed derived
	// fields are left untouched.
	MarkFailed(ctx context.Context, id uuid.UUID, message string, log []entity.ProcessingEvent) error
	// CommitResult atomically writes the derived fields and transitions the
	// document to PROCESSED. Commits from a stale claim yield
	// common.ErrConflict and write nothing.
	CommitResult(ctx context.Context, res CommitResult) error
	// SearchRows returns the committed search projection of every PROCESSED
	// document owned by ownerID, newest first.
	SearchRows(ctx context.Context, ownerID string) ([]search.Doc, error)
}

type documentRepository struct {
	store  *Store
	logger *slog.Logger
}

func NewDocumentRepository(store *Store, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{store: store, logger: logger}
}

const documentColumns = `id, owner_id, original_filename, stored_path, status, raw_text,
	extracted_json, normalized_text, ocr_used, contact_phone, age_years,
	experience_years, error_message, processing_log, uploaded_at, processed_at`

func (r *documentRepository) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = constants.StatusUploaded
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	logJSON, err := marshalLog(doc.ProcessingLog)
	if err != nil {
		return err
	}
	_, err = r.store.db.ExecContext(ctx, r.store.rebind(`
		INSERT INTO documents (id, owner_id, original_filename, stored_path, status, processing_log, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`), doc.ID.String(), doc.OwnerID, doc.OriginalFilename, doc.StoredPath,
		string(doc.Status), logJSON, formatTime(doc.UploadedAt))
	if err != nil {
		r.logger.Error("failed to create document", "id", doc.ID, "error", err)
		return common.WrapError(err, "create document")
	}
	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := r.store.db.QueryRowContext(ctx, r.store.rebind(
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`), id.String())
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return doc, err
}

func (r *documentRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Document, error) {
	rows, err := r.store.db.QueryContext(ctx, r.store.rebind(
		`SELECT `+documentColumns+` FROM documents WHERE owner_id = $1 ORDER BY uploaded_at DESC`), ownerID)
	if err != nil {
		return nil, common.WrapError(err, "list documents")
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *documentRepository) ClaimProcessing(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	res, err := r.store.db.ExecContext(ctx, r.store.rebind(`
		UPDATE documents SET status = $1 WHERE id = $2 AND status != $3
	`), string(constants.StatusProcessing), id.String(), string(constants.StatusProcessing))
	if err != nil {
		return nil, common.WrapError(err, "claim document")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, common.WrapError(err, "claim document")
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		r.logger.Info("task_skip", "document_id", id, "reason", "already_processing")
		return nil, common.ErrConflict
	}
	return r.GetByID(ctx, id)
}

func (r *documentRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string, log []entity.ProcessingEvent) error {
	if len(message) > 5000 {
		message = message[:5000]
	}
	logJSON, err := marshalLog(log)
	if err != nil {
		return err
	}
	_, err = r.store.db.ExecContext(ctx, r.store.rebind(`
		UPDATE documents SET status = $1, error_message = $2, processing_log = $3, processed_at = $4
		WHERE id = $5
	`), string(constants.StatusFailed), message, logJSON, formatTime(time.Now().UTC()), id.String())
	if err != nil {
		r.logger.Error("failed to mark document failed", "document_id", id, "error", err)
		return common.WrapError(err, "mark failed")
	}
	return nil
}

func (r *documentRepository) CommitResult(ctx context.Context, c CommitResult) error {
	logJSON, err := marshalLog(c.Log)
	if err != nil {
		return err
	}
	ocrUsed := 0
	if c.OCRUsed {
		ocrUsed = 1
	}
	// The status guard makes a stale claim a no-op instead of a partial
	// overwrite of a winning attempt.
	res, err := r.store.db.ExecContext(ctx, r.store.rebind(`
		UPDATE documents SET status = $1, raw_text = $2, extracted_json = $3,
			normalized_text = $4, ocr_used = $5, contact_phone = $6,
			age_years = $7, experience_years = $8, error_message = '',
			processing_log = $9, processed_at = $10
		WHERE id = $11 AND status = $12
	`), string(constants.StatusProcessed), c.RawText, string(c.ExtractedJSON),
		c.NormalizedText, ocrUsed, c.ContactPhone, c.AgeYears, c.ExperienceYears,
		logJSON, formatTime(time.Now().UTC()), c.ID.String(), string(constants.StatusProcessing))
	if err != nil {
		r.logger.Error("failed to commit result", "document_id", c.ID, "error", err)
		return common.WrapError(err, "commit result")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return common.WrapError(err, "commit result")
	}
	if n == 0 {
		return common.ErrConflict
	}
	return nil
}

func (r *documentRepository) SearchRows(ctx context.Context, ownerID string) ([]search.Doc, error) {
	rows, err := r.store.db.QueryContext(ctx, r.store.rebind(`
		SELECT id, normalized_text, age_years, experience_years
		FROM documents WHERE owner_id = $1 AND status = $2
		ORDER BY uploaded_at DESC
	`), ownerID, string(constants.StatusProcessed))
	if err != nil {
		return nil, common.WrapError(err, "search rows")
	}
	defer rows.Close()

	var docs []search.Doc
	for rows.Next() {
		var (
			idStr    string
			text     string
			age, exp sql.NullInt64
		)
		if err := rows.Scan(&idStr, &text, &age, &exp); err != nil {
			return nil, common.WrapError(err, "scan search row")
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("bad document id %q: %w", idStr, err)
		}
		docs = append(docs, search.Doc{
			ID:         id,
			Text:       text,
			Age:        nullableInt(age),
			Experience: nullableInt(exp),
		})
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var (
		idStr, ownerID, filename, storedPath, status string
		rawText, extractedJSON                       sql.NullString
		normalized                                   string
		ocrUsed                                      int
		contactPhone                                 sql.NullString
		age, exp                                     sql.NullInt64
		errorMessage, logJSON, uploadedAt            string
		processedAt                                  sql.NullString
	)
	err := row.Scan(&idStr, &ownerID, &filename, &storedPath, &status,
		&rawText, &extractedJSON, &normalized, &ocrUsed, &contactPhone,
		&age, &exp, &errorMessage, &logJSON, &uploadedAt, &processedAt)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("bad document id %q: %w", idStr, err)
	}
	doc := &entity.Document{
		ID:               id,
		OwnerID:          ownerID,
		OriginalFilename: filename,
		StoredPath:       storedPath,
		Status:           constants.DocumentStatus(status),
		NormalizedText:   normalized,
		OCRUsed:          ocrUsed != 0,
		ContactPhone:     nullableString(contactPhone),
		AgeYears:         nullableInt(age),
		ExperienceYears:  nullableInt(exp),
		ErrorMessage:     errorMessage,
	}
	if rawText.Valid {
		doc.RawText = &rawText.String
	}
	if extractedJSON.Valid && extractedJSON.String != "" {
		doc.ExtractedJSON = []byte(extractedJSON.String)
		var fields extract.Fields
		if err := json.Unmarshal(doc.ExtractedJSON, &fields); err != nil {
			return nil, fmt.Errorf("decode extracted_json for %s: %w", idStr, err)
		}
		doc.Extracted = &fields
	}
	if logJSON != "" && logJSON != "[]" {
		if err := json.Unmarshal([]byte(logJSON), &doc.ProcessingLog); err != nil {
			return nil, fmt.Errorf("decode processing_log for %s: %w", idStr, err)
		}
	}
	if doc.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return nil, err
	}
	if processedAt.Valid && processedAt.String != "" {
		t, err := parseTime(processedAt.String)
		if err != nil {
			return nil, err
		}
		doc.ProcessedAt = &t
	}
	return doc, nil
}

func marshalLog(log []entity.ProcessingEvent) (string, error) {
	if len(log) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(log)
	if err != nil {
		return "", common.WrapError(err, "encode processing log")
	}
	return string(b), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
