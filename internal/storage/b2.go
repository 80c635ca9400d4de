package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kurin/blazer/b2"
)

// B2Store keeps objects in a Backblaze B2 bucket.
type B2Store struct {
	bucket *b2.Bucket
}

// NewB2Store authorizes the account and resolves the bucket.
func NewB2Store(ctx context.Context, accountID, appKey, bucketName string) (*B2Store, error) {
	if accountID == "" || bucketName == "" {
		return nil, errors.New("b2: account id and bucket are required")
	}
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}
	return &B2Store{bucket: bucket}, nil
}

// Put streams into a B2 writer. A failed copy cancels the writer's context
// before Close so the partial object is never committed.
func (s *B2Store) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.bucket.Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		w.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

func (s *B2Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj := s.bucket.Object(key)
	if _, err := obj.Attrs(ctx); err != nil {
		if b2.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("b2 stat %s: %w", key, err)
	}
	return obj.NewReader(ctx), nil
}

func (s *B2Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return fmt.Errorf("b2 delete %s: %w", key, err)
	}
	return nil
}
