package repository

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/paperflow/constants"
	"github.com/joseph-ayodele/paperflow/internal/common"
	"github.com/joseph-ayodele/paperflow/internal/entity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenSQLite(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func newDoc(owner string, uploadedAt time.Time) *entity.Document {
	return &entity.Document{
		ID:               uuid.New(),
		OwnerID:          owner,
		OriginalFilename: "conta.pdf",
		StoredPath:       "2024/05/conta.pdf",
		UploadedAt:       uploadedAt,
	}
}

func TestDocumentCreateAndGet(t *testing.T) {
	repo := NewDocumentRepository(newTestStore(t), nil)
	ctx := context.Background()

	doc := newDoc("alice", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, doc))

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "alice", got.OwnerID)
	assert.Equal(t, constants.StatusUploaded, got.Status)
	assert.Nil(t, got.RawText)
	assert.Nil(t, got.ProcessedAt)
	assert.False(t, got.OCRUsed)
}

func TestDocumentGetMissing(t *testing.T) {
	repo := NewDocumentRepository(newTestStore(t), nil)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestClaimProcessing(t *testing.T) {
	repo := NewDocumentRepository(newTestStore(t), nil)
	ctx := context.Background()

	doc := newDoc("alice", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, doc))

	claimed, err := repo.ClaimProcessing(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusProcessing, claimed.Status)

	// a second claim while processing is a conflict
	_, err = repo.ClaimProcessing(ctx, doc.ID)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestClaimProcessingMissing(t *testing.T) {
	repo := NewDocumentRepository(newTestStore(t), nil)

	_, err := repo.ClaimProcessing(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCommitResult(t *testing.T) {
	repo := NewDocumentRepository(newTestStore(t), nil)
	ctx := context.Background()

	doc := newDoc("alice", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, doc))
	_, err := repo.ClaimProcessing(ctx, doc.ID)
	require.NoError(t, err)

	age := 30
	phone := "5511987654321"
	require.NoError(t, repo.CommitResult(ctx, CommitResult{
		ID:             doc.ID,
		RawText:        "Vencimento: 10/05/2024",
		ExtractedJSON:  []byte(`{"due_date":"2024-05-10"}`),
		NormalizedText: "vencimento: 10/05/2024 2024-05-10",
		OCRUsed:        true,
		ContactPhone:   &phone,
		AgeYears:       &age,
		Log:            []entity.ProcessingEvent{{Event: constants.EventProcessDone, At: time.Now().UTC()}},
	}))

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusProcessed, got.Status)
	require.NotNil(t, got.RawText)
	assert.Equal(t, "Vencimento: 10/05/2024", *got.RawText)
	require.NotNil(t, got.Extracted)
	assert.Equal(t, "2024-05-10", got.Extracted.DueDate)
	assert.True(t, got.OCRUsed)
	require.NotNil(t, got.ContactPhone)
	assert.Equal(t, phone, *got.ContactPhone)
	require.NotNil(t, got.AgeYears)
	assert.Equal(t, 30, *got.AgeYears)
	assert.Nil(t, got.ExperienceYears)
	assert.Empty(t, got.ErrorMessage)
	require.NotNil(t, got.ProcessedAt)
	require.Len(t, got.ProcessingLog, 1)
	assert.Equal(t, constants.EventProcessDone, got.ProcessingLog[0].Event)
}

func TestCommitResultWithoutClaimIsConflict(t *testing.T) {
	repo := NewDocumentRepository(newTestStore(t), nil)
	ctx := context.Background()

	doc := newDoc("alice", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, doc))

	err := repo.CommitResult(ctx, CommitResult{ID: doc.ID, ExtractedJSON: []byte(`{}`)})
	assert.ErrorIs(t, err, common.ErrConflict)

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusUploaded, got.Status)
	assert.Nil(t, got.Extracted)
}

func TestMarkFailedPreservesCommittedResult(t *testing.T) {
	repo := NewDocumentRepository(newTestStore(t), nil)
	ctx := context.Background()

	doc := newDoc("alice", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, doc))
	_, err := repo.ClaimProcessing(ctx, doc.ID)
	require.NoError(t, err)
	require.NoError(t, repo.CommitResult(ctx, CommitResult{
		ID:             doc.ID,
		RawText:        "texto original",
		ExtractedJSON:  []byte(`{"amount":"150.00"}`),
		NormalizedText: "texto original 150.00",
	}))

	// reprocess attempt that fails must not wipe the previous result
	_, err = repo.ClaimProcessing(ctx, doc.ID)
	require.NoError(t, err)
	require.NoError(t, repo.MarkFailed(ctx, doc.ID, "ocr unavailable",
		[]entity.ProcessingEvent{{Event: constants.EventProcessFailed, At: time.Now().UTC()}}))

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, got.Status)
	assert.Equal(t, "ocr unavailable", got.ErrorMessage)
	require.NotNil(t, got.RawText)
	assert.Equal(t, "texto original", *got.RawText)
	require.NotNil(t, got.Extracted)
	assert.Equal(t, "150.00", got.Extracted.Amount)
}

func TestReprocessFromFailedAndProcessed(t *testing.T) {
	repo := NewDocumentRepository(newTestStore(t), nil)
	ctx := context.Background()

	doc := newDoc("alice", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, doc))

	_, err := repo.ClaimProcessing(ctx, doc.ID)
	require.NoError(t, err)
	require.NoError(t, repo.MarkFailed(ctx, doc.ID, "boom", nil))

	// FAILED -> PROCESSING is allowed
	_, err = repo.ClaimProcessing(ctx, doc.ID)
	require.NoError(t, err)
	require.NoError(t, repo.CommitResult(ctx, CommitResult{ID: doc.ID, ExtractedJSON: []byte(`{}`)}))

	// PROCESSED -> PROCESSING is allowed too
	_, err = repo.ClaimProcessing(ctx, doc.ID)
	require.NoError(t, err)
}

func TestSearchRows(t *testing.T) {
	repo := NewDocumentRepository(newTestStore(t), nil)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	older := newDoc("alice", base)
	newer := newDoc("alice", base.Add(time.Minute))
	unprocessed := newDoc("alice", base.Add(2*time.Minute))
	other := newDoc("bob", base)
	for _, d := range []*entity.Document{older, newer, unprocessed, other} {
		require.NoError(t, repo.Create(ctx, d))
	}

	commit := func(d *entity.Document, text string, age *int) {
		_, err := repo.ClaimProcessing(ctx, d.ID)
		require.NoError(t, err)
		require.NoError(t, repo.CommitResult(ctx, CommitResult{
			ID:             d.ID,
			ExtractedJSON:  []byte(`{}`),
			NormalizedText: text,
			AgeYears:       age,
		}))
	}
	age := 30
	commit(older, "gerente de compras", &age)
	commit(newer, "analista financeiro", nil)
	commit(other, "gerente de vendas", nil)

	rows, err := repo.SearchRows(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
	assert.Nil(t, rows[0].Age)
	require.NotNil(t, rows[1].Age)
	assert.Equal(t, 30, *rows[1].Age)
}
