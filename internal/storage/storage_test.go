package storage

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreSaveAndOpen(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), nil)
	require.NoError(t, err)

	id := uuid.New()
	ref, err := store.Save(id, "Conta de Luz.pdf", strings.NewReader("%PDF-1.4 data"))
	require.NoError(t, err)

	// date-sharded reference carrying the id, not the original name
	now := time.Now().UTC()
	assert.Contains(t, ref, now.Format("2006"))
	assert.Contains(t, ref, id.String()+".pdf")
	assert.NotContains(t, ref, "Conta")

	f, err := store.Open(ref)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 data", string(data))

	// Path resolves to a real file on disk
	_, err = os.Stat(store.Path(ref))
	assert.NoError(t, err)
}

func TestDiskStoreSaveRefusesOverwrite(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), nil)
	require.NoError(t, err)

	id := uuid.New()
	_, err = store.Save(id, "a.pdf", strings.NewReader("one"))
	require.NoError(t, err)

	_, err = store.Save(id, "a.pdf", strings.NewReader("two"))
	assert.Error(t, err)
}
