package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/tugas-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleDeletesBlob(t *testing.T) {
	blobs := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, blobs.Put(ctx, "submissions/a/old.pdf", strings.NewReader("x"), 1, ""))

	w := NewBlobReaperWorker(nil, blobs, zerolog.Nop())
	raw, _ := json.Marshal(reapPayload{Key: "submissions/a/old.pdf"})

	retry, err := w.handle(ctx, string(raw))
	require.NoError(t, err)
	assert.Empty(t, retry)
	assert.Empty(t, blobs.Keys())

	// already gone is fine
	retry, err = w.handle(ctx, string(raw))
	assert.NoError(t, err)
	assert.Empty(t, retry)
}

func TestHandleDropsMalformedPayload(t *testing.T) {
	w := NewBlobReaperWorker(nil, storage.NewMemoryStore(), zerolog.Nop())
	retry, err := w.handle(context.Background(), "{not json")
	assert.Error(t, err)
	assert.Empty(t, retry)
}

type failingStore struct{ storage.BlobStore }

func (failingStore) Delete(context.Context, string) error { return errors.New("bucket offline") }
func (failingStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, storage.ErrObjectNotFound
}

func TestHandleRetriesThenGivesUp(t *testing.T) {
	w := NewBlobReaperWorker(nil, failingStore{}, zerolog.Nop())
	raw, _ := json.Marshal(reapPayload{Key: "k"})
	payload := string(raw)

	for attempt := 1; attempt < maxReapAttempts; attempt++ {
		retry, err := w.handle(context.Background(), payload)
		require.Error(t, err)
		require.NotEmpty(t, retry)

		var p reapPayload
		require.NoError(t, json.Unmarshal([]byte(retry), &p))
		assert.Equal(t, attempt, p.Attempts)
		payload = retry
	}

	retry, err := w.handle(context.Background(), payload)
	assert.Error(t, err)
	assert.Empty(t, retry, "dropped after the last attempt")
}
