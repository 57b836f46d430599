package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileStore owns the original document bytes. Originals are written once at
// registration and never mutated afterwards; consumers only read.
type FileStore interface {
	// Save persists the original bytes and returns the stored reference.
	Save(id uuid.UUID, originalFilename string, r io.Reader) (string, error)
	// Path resolves a stored reference to a local path for the tools.
	Path(ref string) string
	// Open returns the original byte stream for a stored reference.
	Open(ref string) (io.ReadCloser, error)
}

type diskStore struct {
	root   string
	logger *slog.Logger
}

func NewDiskStore(root string, logger *slog.Logger) (FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &diskStore{root: root, logger: logger}, nil
}

// Save writes under <root>/<yyyy>/<mm>/<id>.pdf; the date sharding keeps
// directories small and the id keeps names collision-free.
func (s *diskStore) Save(id uuid.UUID, originalFilename string, r io.Reader) (string, error) {
	now := time.Now().UTC()
	rel := filepath.Join(now.Format("2006"), now.Format("01"), id.String()+filepath.Ext(originalFilename))
	abs := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create original: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(abs)
		return "", fmt.Errorf("write original: %w", err)
	}
	s.logger.Debug("stored original", "ref", rel, "bytes", n, "filename", originalFilename)
	return rel, nil
}

func (s *diskStore) Path(ref string) string {
	return filepath.Join(s.root, ref)
}

func (s *diskStore) Open(ref string) (io.ReadCloser, error) {
	return os.Open(s.Path(ref))
}
