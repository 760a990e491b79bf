package storage

import (
	"context"
	"io"
)

// Storage persists uploaded files and returns the stored name used to
// reference them later.
type Storage interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Open(ctx context.Context, storedName string) (io.ReadCloser, error)
	Delete(ctx context.Context, storedName string) error
}
