package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperflow/constants"
	"github.com/joseph-ayodele/paperflow/internal/async"
	"github.com/joseph-ayodele/paperflow/internal/common"
	"github.com/joseph-ayodele/paperflow/internal/entity"
	"github.com/joseph-ayodele/paperflow/internal/repository"
	"github.com/joseph-ayodele/paperflow/internal/storage"
)

// Service registers new originals: save the bytes, insert the UPLOADED row,
// hand the id to the queue.
type Service struct {
	files  storage.FileStore
	docs   repository.DocumentRepository
	queue  async.Queue
	logger *slog.Logger
}

func NewService(files storage.FileStore, docs repository.DocumentRepository, queue async.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{files: files, docs: docs, queue: queue, logger: logger}
}

// Register stores one uploaded PDF and creates its document row. When
// enqueue is set the document is immediately queued for processing.
func (s *Service) Register(ctx context.Context, ownerID, filename string, r io.Reader, enqueue bool) (*entity.Document, error) {
	if !constants.IsAllowedExt(filepath.Ext(filename)) {
		return nil, common.NewAppError("UNSUPPORTED_FILE", fmt.Sprintf("unsupported file type: %s", filename), common.ErrInvalidInput)
	}

	id := uuid.New()
	ref, err := s.files.Save(id, filename, r)
	if err != nil {
		return nil, common.WrapError(err, "store original")
	}

	doc := &entity.Document{
		ID:               id,
		OwnerID:          ownerID,
		OriginalFilename: filepath.Base(filename),
		StoredPath:       ref,
		Status:           constants.StatusUploaded,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Info(constants.EventUploadDocuments, "document_id", doc.ID, "filename", doc.OriginalFilename, "owner_id", ownerID)

	if enqueue && s.queue != nil {
		if err := s.queue.Enqueue(ctx, async.Job{DocumentID: doc.ID}); err != nil {
			s.logger.Warn("failed to enqueue after upload", "document_id", doc.ID, "error", err)
		}
	}
	return doc, nil
}

// RegisterPath registers a file already on disk (inbox watcher flow).
func (s *Service) RegisterPath(ctx context.Context, ownerID, path string) (*entity.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.WrapError(err, "open inbox file")
	}
	defer f.Close()
	return s.Register(ctx, ownerID, filepath.Base(path), f, true)
}
