package pipeline

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/paperflow/constants"
	"github.com/joseph-ayodele/paperflow/internal/common"
	"github.com/joseph-ayodele/paperflow/internal/entity"
	"github.com/joseph-ayodele/paperflow/internal/ocr"
	"github.com/joseph-ayodele/paperflow/internal/repository"
	"github.com/joseph-ayodele/paperflow/internal/search"
)

type fakeAcquirer struct {
	res      ocr.Result
	err      error
	lastPath string
	forceOCR bool
}

func (f *fakeAcquirer) Acquire(_ context.Context, path string, forceOCR bool) (ocr.Result, error) {
	f.lastPath = path
	f.forceOCR = forceOCR
	return f.res, f.err
}

type fakeResolver struct{}

func (fakeResolver) Path(ref string) string { return "/data/" + ref }

// fakeDocs implements just enough of DocumentRepository for the processor.
type fakeDocs struct {
	doc        *entity.Document
	claimErr   error
	commitErr  error
	committed  *repository.CommitResult
	failedMsg  string
	failedLog  []entity.ProcessingEvent
	markFailed int
}

func (f *fakeDocs) Create(context.Context, *entity.Document) error { return nil }

func (f *fakeDocs) GetByID(context.Context, uuid.UUID) (*entity.Document, error) {
	return f.doc, nil
}

func (f *fakeDocs) ListByOwner(context.Context, string) ([]*entity.Document, error) {
	return nil, nil
}

func (f *fakeDocs) ClaimProcessing(context.Context, uuid.UUID) (*entity.Document, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	return f.doc, nil
}

func (f *fakeDocs) MarkFailed(_ context.Context, _ uuid.UUID, message string, log []entity.ProcessingEvent) error {
	f.markFailed++
	f.failedMsg = message
	f.failedLog = log
	return nil
}

func (f *fakeDocs) CommitResult(_ context.Context, res repository.CommitResult) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = &res
	return nil
}

func (f *fakeDocs) SearchRows(context.Context, string) ([]search.Doc, error) {
	return nil, nil
}

func eventNames(log []entity.ProcessingEvent) []string {
	names := make([]string, 0, len(log))
	for _, e := range log {
		names = append(names, e.Event)
	}
	return names
}

func testDoc() *entity.Document {
	return &entity.Document{
		ID:         uuid.New(),
		OwnerID:    "default",
		StoredPath: "2024/05/doc.pdf",
		Status:     constants.StatusProcessing,
	}
}

func TestProcess_CommitsResult(t *testing.T) {
	doc := testDoc()
	docs := &fakeDocs{doc: doc}
	acq := &fakeAcquirer{res: ocr.Result{
		Text:   "Vencimento: 10/05/2024\nValor: R$ 150,00",
		Pages:  1,
		Method: "pdf-text",
	}}
	p := NewProcessor(nil, acq, fakeResolver{}, docs)

	res, err := p.Process(context.Background(), doc.ID, false)

	require.NoError(t, err)
	assert.Equal(t, "/data/2024/05/doc.pdf", acq.lastPath)
	assert.Equal(t, "2024-05-10", res.Fields.DueDate)
	assert.Equal(t, "150.00", res.Fields.Amount)
	assert.False(t, res.OCRUsed)

	require.NotNil(t, docs.committed)
	assert.Equal(t, doc.ID, docs.committed.ID)
	assert.Contains(t, string(docs.committed.ExtractedJSON), `"due_date":"2024-05-10"`)
	assert.Contains(t, docs.committed.NormalizedText, "vencimento")
	assert.Contains(t, docs.committed.NormalizedText, "2024-05-10")

	names := eventNames(docs.committed.Log)
	assert.Equal(t, constants.EventProcessStart, names[0])
	assert.Equal(t, constants.EventProcessDone, names[len(names)-1])
	assert.Contains(t, names, constants.EventExtractOK)
	assert.Contains(t, names, constants.EventExtractMissing)
	assert.Zero(t, docs.markFailed)
}

func TestProcess_OCRFallbackRecorded(t *testing.T) {
	doc := testDoc()
	docs := &fakeDocs{doc: doc}
	acq := &fakeAcquirer{res: ocr.Result{
		Text:    "Valor: R$ 99,90",
		OCRUsed: true,
		Method:  "pdf-ocr",
	}}
	p := NewProcessor(nil, acq, fakeResolver{}, docs)

	res, err := p.Process(context.Background(), doc.ID, false)

	require.NoError(t, err)
	assert.True(t, res.OCRUsed)
	assert.True(t, docs.committed.OCRUsed)
	assert.Contains(t, eventNames(docs.committed.Log), constants.EventOCRFallback)
}

func TestProcess_ForceOCRPropagates(t *testing.T) {
	doc := testDoc()
	docs := &fakeDocs{doc: doc}
	acq := &fakeAcquirer{res: ocr.Result{Text: "texto", OCRUsed: true, Method: "pdf-ocr"}}
	p := NewProcessor(nil, acq, fakeResolver{}, docs)

	_, err := p.Process(context.Background(), doc.ID, true)

	require.NoError(t, err)
	assert.True(t, acq.forceOCR)
}

func TestProcess_AcquireFailureMarksFailed(t *testing.T) {
	doc := testDoc()
	docs := &fakeDocs{doc: doc}
	acq := &fakeAcquirer{err: ocr.ErrNoText}
	p := NewProcessor(nil, acq, fakeResolver{}, docs)

	_, err := p.Process(context.Background(), doc.ID, false)

	assert.ErrorIs(t, err, ocr.ErrNoText)
	assert.Equal(t, 1, docs.markFailed)
	assert.Contains(t, docs.failedMsg, "no text")
	assert.Nil(t, docs.committed)

	names := eventNames(docs.failedLog)
	assert.Equal(t, constants.EventProcessFailed, names[len(names)-1])
}

func TestProcess_FailureSurvivesCanceledContext(t *testing.T) {
	doc := testDoc()
	docs := &fakeDocs{doc: doc}
	acq := &fakeAcquirer{err: ocr.ErrOCRUnavailable}
	p := NewProcessor(nil, acq, fakeResolver{}, docs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, doc.ID, false)

	assert.ErrorIs(t, err, ocr.ErrOCRUnavailable)
	assert.Equal(t, 1, docs.markFailed)
}

func TestProcess_ClaimConflictWritesNothing(t *testing.T) {
	doc := testDoc()
	docs := &fakeDocs{doc: doc, claimErr: common.ErrConflict}
	p := NewProcessor(nil, &fakeAcquirer{}, fakeResolver{}, docs)

	_, err := p.Process(context.Background(), doc.ID, false)

	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Nil(t, docs.committed)
	assert.Zero(t, docs.markFailed)
}

func TestProcess_StaleCommitConflict(t *testing.T) {
	doc := testDoc()
	docs := &fakeDocs{doc: doc, commitErr: common.ErrConflict}
	acq := &fakeAcquirer{res: ocr.Result{Text: "texto qualquer", Method: "pdf-text"}}
	p := NewProcessor(nil, acq, fakeResolver{}, docs)

	_, err := p.Process(context.Background(), doc.ID, false)

	assert.ErrorIs(t, err, common.ErrConflict)
	// a stale commit is dropped, never rewritten as a failure
	assert.Zero(t, docs.markFailed)
}

func TestProcess_PriorLogIsPreserved(t *testing.T) {
	doc := testDoc()
	doc.ProcessingLog = []entity.ProcessingEvent{{Event: constants.EventUploadDocuments}}
	docs := &fakeDocs{doc: doc}
	acq := &fakeAcquirer{res: ocr.Result{Text: "texto", Method: "pdf-text"}}
	p := NewProcessor(nil, acq, fakeResolver{}, docs)

	_, err := p.Process(context.Background(), doc.ID, false)

	require.NoError(t, err)
	names := eventNames(docs.committed.Log)
	assert.Equal(t, constants.EventUploadDocuments, names[0])
	assert.Equal(t, constants.EventProcessStart, names[1])
}
