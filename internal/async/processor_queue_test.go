package async

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/paperflow/constants"
	"github.com/joseph-ayodele/paperflow/internal/common"
	"github.com/joseph-ayodele/paperflow/internal/entity"
	"github.com/joseph-ayodele/paperflow/internal/ocr"
	"github.com/joseph-ayodele/paperflow/internal/pipeline"
	"github.com/joseph-ayodele/paperflow/internal/repository"
	"github.com/joseph-ayodele/paperflow/internal/search"
)

type stubAcquirer struct{}

func (stubAcquirer) Acquire(context.Context, string, bool) (ocr.Result, error) {
	return ocr.Result{Text: "Valor: R$ 10,00", Method: "pdf-text"}, nil
}

type stubResolver struct{}

func (stubResolver) Path(ref string) string { return ref }

type stubDocs struct {
	mu        sync.Mutex
	committed []uuid.UUID
}

func (s *stubDocs) Create(context.Context, *entity.Document) error { return nil }

func (s *stubDocs) GetByID(_ context.Context, id uuid.UUID) (*entity.Document, error) {
	return &entity.Document{ID: id, Status: constants.StatusProcessing}, nil
}

func (s *stubDocs) ListByOwner(context.Context, string) ([]*entity.Document, error) {
	return nil, nil
}

func (s *stubDocs) ClaimProcessing(_ context.Context, id uuid.UUID) (*entity.Document, error) {
	return &entity.Document{ID: id, Status: constants.StatusProcessing}, nil
}

func (s *stubDocs) MarkFailed(context.Context, uuid.UUID, string, []entity.ProcessingEvent) error {
	return nil
}

func (s *stubDocs) CommitResult(_ context.Context, res repository.CommitResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, res.ID)
	return nil
}

func (s *stubDocs) SearchRows(context.Context, string) ([]search.Doc, error) {
	return nil, nil
}

func (s *stubDocs) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.committed)
}

func newQueueUnderTest(docs *stubDocs, opts ...Option) *ProcessorQueue {
	proc := pipeline.NewProcessor(slog.Default(), stubAcquirer{}, stubResolver{}, docs)
	return NewProcessorQueue(proc, slog.Default(), opts...)
}

func TestQueueProcessesJobs(t *testing.T) {
	docs := &stubDocs{}
	q := newQueueUnderTest(docs, WithWorkers(2), WithQueueSize(8))

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.Equal(t, 5, docs.count())
}

func TestQueueEnqueueAfterShutdown(t *testing.T) {
	docs := &stubDocs{}
	q := newQueueUnderTest(docs)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)

	err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New()})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestQueueShutdownIsIdempotent(t *testing.T) {
	docs := &stubDocs{}
	q := newQueueUnderTest(docs)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)
	q.Shutdown(ctx) // second call must not panic
}
