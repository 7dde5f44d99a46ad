package services

import (
	"context"
	"io"
)

// ObjectStore is the binary blob backend the services delete from and the
// handlers upload to. Implemented by storage.Store; faked in tests.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
}
