// Package server provides the HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joseph-ayodele/paperflow/internal/async"
	"github.com/joseph-ayodele/paperflow/internal/common"
	"github.com/joseph-ayodele/paperflow/internal/entity"
	"github.com/joseph-ayodele/paperflow/internal/export"
	"github.com/joseph-ayodele/paperflow/internal/ingest"
	"github.com/joseph-ayodele/paperflow/internal/repository"
	"github.com/joseph-ayodele/paperflow/internal/search"
)

// DocumentHandler handles document-related HTTP requests.
type DocumentHandler struct {
	ingestSvc *ingest.Service
	docs      repository.DocumentRepository
	presets   repository.PresetRepository
	queue     async.Queue
	exporter  *export.Service
	cfg       common.ServerConfig
	logger    *slog.Logger
}

func NewDocumentHandler(
	ingestSvc *ingest.Service,
	docs repository.DocumentRepository,
	presets repository.PresetRepository,
	queue async.Queue,
	exporter *export.Service,
	cfg common.ServerConfig,
	logger *slog.Logger,
) *DocumentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentHandler{
		ingestSvc: ingestSvc,
		docs:      docs,
		presets:   presets,
		queue:     queue,
		exporter:  exporter,
		cfg:       cfg,
		logger:    logger,
	}
}

type uploadResult struct {
	Filename   string `json:"filename"`
	DocumentID string `json:"document_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
}

// UploadDocuments accepts one or more PDF files in a multipart form and
// registers each of them. Per-file failures do not abort the batch.
func (h *DocumentHandler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxFileSize*int64(h.cfg.MaxBulk))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "at least one file is required")
		return
	}
	if len(files) > h.cfg.MaxBulk {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many files: maximum %d per upload", h.cfg.MaxBulk))
		return
	}

	results := make([]uploadResult, 0, len(files))
	accepted := 0
	for _, header := range files {
		name := strings.TrimSpace(header.Filename)
		if header.Size > h.cfg.MaxFileSize {
			results = append(results, uploadResult{Filename: name, Error: "file too large"})
			continue
		}
		f, err := header.Open()
		if err != nil {
			results = append(results, uploadResult{Filename: name, Error: "unreadable file"})
			continue
		}
		doc, err := h.ingestSvc.Register(r.Context(), owner, name, f, true)
		_ = f.Close()
		if err != nil {
			results = append(results, uploadResult{Filename: name, Error: err.Error()})
			continue
		}
		accepted++
		results = append(results, uploadResult{
			Filename:   name,
			DocumentID: doc.ID.String(),
			Status:     string(doc.Status),
		})
	}

	status := http.StatusCreated
	if accepted == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]any{
		"accepted": accepted,
		"rejected": len(results) - accepted,
		"results":  results,
	})
}

// ListDocuments returns every document of the requesting owner.
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.ListByOwner(r.Context(), ownerID(r))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if docs == nil {
		docs = make([]*entity.Document, 0)
	}
	writeJSON(w, http.StatusOK, docs)
}

// GetDocument returns a single document with its extracted record and
// processing log.
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}
	doc, err := h.docs.GetByID(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if doc.OwnerID != ownerID(r) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ProcessDocument enqueues a document for (re)processing. ?force_ocr=1
// skips the native text pass.
func (h *DocumentHandler) ProcessDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}
	doc, err := h.docs.GetByID(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if doc.OwnerID != ownerID(r) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	forceOCR := false
	if raw := r.URL.Query().Get("force_ocr"); raw == "1" || strings.EqualFold(raw, "true") {
		forceOCR = true
	}

	job := async.Job{DocumentID: id, ForceOCR: forceOCR, SubmittedAt: time.Now().UTC()}
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"document_id": id.String(),
		"force_ocr":   forceOCR,
		"queued":      true,
	})
}

// SearchDocuments filters the owner's processed documents by a free-text
// query, a saved preset, or both.
func (h *DocumentHandler) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	query := r.URL.Query().Get("q")
	presetID := r.URL.Query().Get("preset_id")
	exclude := r.URL.Query().Get("exclude")
	if strings.TrimSpace(query) == "" && strings.TrimSpace(presetID) == "" {
		writeError(w, http.StatusBadRequest, "q or preset_id is required")
		return
	}

	docs, err := h.searchDocuments(r.Context(), owner, query, presetID, exclude)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if docs == nil {
		docs = make([]*entity.Document, 0)
	}
	writeJSON(w, http.StatusOK, docs)
}

// ExportDocuments returns the search result set (or, with no filters, all
// of the owner's documents) as an XLSX workbook.
func (h *DocumentHandler) ExportDocuments(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	query := r.URL.Query().Get("q")
	presetID := r.URL.Query().Get("preset_id")
	exclude := r.URL.Query().Get("exclude")

	var docs []*entity.Document
	var err error
	if strings.TrimSpace(query) == "" && strings.TrimSpace(presetID) == "" {
		docs, err = h.docs.ListByOwner(r.Context(), owner)
	} else {
		docs, err = h.searchDocuments(r.Context(), owner, query, presetID, exclude)
	}
	if err != nil {
		writeAppError(w, err)
		return
	}

	data, err := h.exporter.DocumentsXLSX(docs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	filename := "documents-" + time.Now().UTC().Format("20060102-150405") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// searchDocuments composes the query and preset criteria. Both active means
// both must match (intersection). An explicit exclude overrides the preset's
// exclude terms.
func (h *DocumentHandler) searchDocuments(ctx context.Context, owner, query, presetID, exclude string) ([]*entity.Document, error) {
	var criteria []search.Criteria

	excludeTerms := search.SplitTerms(exclude)
	if terms := search.SplitTerms(query); len(terms) > 0 || len(excludeTerms) > 0 {
		criteria = append(criteria, search.Criteria{Terms: terms, Mode: search.ModeAll, ExcludeTerms: excludeTerms})
	}
	if strings.TrimSpace(presetID) != "" {
		pid, err := uuid.Parse(presetID)
		if err != nil {
			return nil, common.NewAppError("INVALID_INPUT", "invalid preset id", common.ErrInvalidInput)
		}
		preset, err := h.presets.GetByID(ctx, owner, pid)
		if err != nil {
			return nil, err
		}
		presetCriteria := repository.PresetCriteria(preset)
		if len(excludeTerms) > 0 {
			presetCriteria.ExcludeTerms = nil
		}
		criteria = append(criteria, presetCriteria)
	}

	rows, err := h.docs.SearchRows(ctx, owner)
	if err != nil {
		return nil, err
	}
	matched := search.Filter(rows, criteria...)
	if len(matched) == 0 {
		return nil, nil
	}

	all, err := h.docs.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*entity.Document, len(all))
	for _, d := range all {
		byID[d.ID] = d
	}

	out := make([]*entity.Document, 0, len(matched))
	for _, id := range matched {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}
