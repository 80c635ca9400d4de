package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStore keeps objects in an Alibaba Cloud OSS bucket.
type OSSStore struct {
	bucket *oss.Bucket
}

// NewOSSStore connects to endpoint and verifies the bucket is reachable.
func NewOSSStore(endpoint, accessKeyID, accessKeySecret, bucketName string) (*OSSStore, error) {
	if endpoint == "" || bucketName == "" {
		return nil, errors.New("oss: endpoint and bucket are required")
	}
	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("oss bucket %q: %w", bucketName, err)
	}
	return &OSSStore{bucket: bucket}, nil
}

// Put uploads in a single request; OSS only exposes the object once it is complete.
func (s *OSSStore) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentDisposition("attachment"),
	}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := s.bucket.PutObject(key, r, opts...); err != nil {
		return fmt.Errorf("oss put %s: %w", key, err)
	}
	return nil
}

func (s *OSSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		if ossNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("oss get %s: %w", key, err)
	}
	return body, nil
}

func (s *OSSStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil && !ossNotFound(err) {
		return fmt.Errorf("oss delete %s: %w", key, err)
	}
	return nil
}

func ossNotFound(err error) bool {
	var se oss.ServiceError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusNotFound
	}
	return false
}
