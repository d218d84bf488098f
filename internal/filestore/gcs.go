package filestore

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSStore keeps uploads in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore wraps an existing client. Objects are stored under
// prefix/<name>.
func NewGCSStore(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *GCSStore) objectPath(ref string) string {
	if s.prefix == "" {
		return ref
	}
	return s.prefix + "/" + ref
}

func (s *GCSStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	w := s.client.Bucket(s.bucket).Object(s.objectPath(name)).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to upload file to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return name, nil
}

func (s *GCSStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	rc, err := s.client.Bucket(s.bucket).Object(s.objectPath(ref)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open file from GCS: %w", err)
	}
	return rc, nil
}

func (s *GCSStore) Delete(ctx context.Context, ref string) error {
	return s.client.Bucket(s.bucket).Object(s.objectPath(ref)).Delete(ctx)
}
