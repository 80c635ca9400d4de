package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/tugas-backend/internal/config"
	"github.com/stemsi/tugas-backend/internal/storage"
)

// maxReapAttempts bounds retries of a single key before it is dropped and logged.
const maxReapAttempts = 5

// BlobReaperWorker consumes reap_blobs_queue and deletes blobs that no
// submission references any more: superseded files and files of deleted
// assignments.
type BlobReaperWorker struct {
	rdb   *redis.Client
	blobs storage.BlobStore
	queue string
	log   zerolog.Logger
}

// NewBlobReaperWorker creates a new BlobReaperWorker.
func NewBlobReaperWorker(rdb *redis.Client, blobs storage.BlobStore, log zerolog.Logger) *BlobReaperWorker {
	return &BlobReaperWorker{
		rdb:   rdb,
		blobs: blobs,
		queue: config.WorkerKey.ReapBlobsQueue,
		log:   log.With().Str("component", "blob_reaper_worker").Logger(),
	}
}

type reapPayload struct {
	Key        string    `json:"key"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Enqueue schedules keys for deletion.
func (w *BlobReaperWorker) Enqueue(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	now := time.Now().UTC()
	values := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		raw, err := json.Marshal(reapPayload{Key: k, EnqueuedAt: now})
		if err != nil {
			return err
		}
		values = append(values, raw)
	}
	if err := w.rdb.RPush(ctx, w.queue, values...).Err(); err != nil {
		return fmt.Errorf("enqueue blob cleanup: %w", err)
	}
	return nil
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *BlobReaperWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *BlobReaperWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, w.queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			time.Sleep(time.Second)
		}
		return
	}

	if len(result) < 2 {
		return
	}

	retry, err := w.handle(ctx, result[1])
	if err == nil {
		return
	}
	if retry == "" {
		return
	}
	// Push back to queue for retry.
	w.rdb.RPush(ctx, w.queue, retry)
	time.Sleep(5 * time.Second)
}

// handle deletes the blob named by raw. On a retryable failure it returns the
// payload to push back; an empty retry means the item is dropped.
func (w *BlobReaperWorker) handle(ctx context.Context, raw string) (retry string, err error) {
	var p reapPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return "", err
	}
	if p.Key == "" {
		return "", nil
	}

	if err := w.blobs.Delete(ctx, p.Key); err != nil {
		p.Attempts++
		if p.Attempts >= maxReapAttempts {
			w.log.Error().Err(err).Str("key", p.Key).Int("attempts", p.Attempts).Msg("Giving up on blob deletion")
			return "", err
		}
		w.log.Warn().Err(err).Str("key", p.Key).Int("attempts", p.Attempts).Msg("Delete error, retrying in 5s")
		next, mErr := json.Marshal(p)
		if mErr != nil {
			return "", mErr
		}
		return string(next), err
	}

	w.log.Debug().Str("key", p.Key).Msg("Blob reaped")
	return "", nil
}

// drain processes all remaining items in the queue before shutdown.
func (w *BlobReaperWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, w.queue).Result()
		if err != nil {
			break
		}

		if retry, err := w.handle(ctx, result); err != nil {
			w.log.Error().Err(err).Msg("Drain delete error")
			if retry != "" {
				w.rdb.RPush(ctx, w.queue, retry)
			}
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
