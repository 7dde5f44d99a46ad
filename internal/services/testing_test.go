package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

// fakeStore records object store calls so tests can assert on best-effort
// cleanup behavior.
type fakeStore struct {
	uploaded  []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeStore) Upload(_ context.Context, key string, _ io.Reader, _ int64, _ string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploaded = append(f.uploaded, key)
	return "http://store.local/vision-boards/" + key, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) DeleteMany(_ context.Context, keys []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, keys...)
	return nil
}

var errStorageDown = errors.New("storage unavailable")

func newPoolMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool error: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
