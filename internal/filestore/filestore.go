// Package filestore holds uploaded source files behind a narrow blob-store
// interface. The ingestion core only ever saves, opens and deletes by
// reference; where the bytes live is a deployment choice.
package filestore

import (
	"context"
	"io"
)

// Store is the blob-store contract. Save returns an opaque reference that
// Open and Delete accept; implementations keep the original filename's
// extension in the reference so format detection keeps working downstream.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}
