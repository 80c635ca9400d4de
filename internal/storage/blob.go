// Package storage holds the Blob Store backends that persist submitted files.
// A stored object is addressed by its key, which is the reference kept on a Submission.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/tugas-backend/internal/config"
)

// ErrObjectNotFound is returned by Open when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// BlobStore persists file bytes under a key.
// Put either stores the whole object or leaves nothing behind.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete is idempotent: a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// SubmissionKey derives a collision-free key for a student's upload:
// submissions/<assignment>/<unix-millis>-<random><ext>.
func SubmissionKey(assignmentID uuid.UUID, originalName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(originalName))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("submissions/%s/%d-%s%s", assignmentID, now.UnixMilli(), suffix, ext)
}

// Open builds the BlobStore selected by cfg.BlobDriver.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (BlobStore, error) {
	switch cfg.BlobDriver {
	case config.BlobDriverLocal:
		log.Info().Str("dir", cfg.UploadDir).Msg("Blob store: local filesystem")
		return NewLocalStore(cfg.UploadDir)
	case config.BlobDriverOSS:
		log.Info().Str("bucket", cfg.OSSBucket).Msg("Blob store: Alibaba OSS")
		return NewOSSStore(cfg.OSSEndpoint, cfg.OSSAccessKeyID, cfg.OSSAccessKeySecret, cfg.OSSBucket)
	case config.BlobDriverB2:
		log.Info().Str("bucket", cfg.B2Bucket).Msg("Blob store: Backblaze B2")
		return NewB2Store(ctx, cfg.B2AccountID, cfg.B2ApplicationKey, cfg.B2Bucket)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.BlobDriver)
	}
}
