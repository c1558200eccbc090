package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/rosterly/rosterly/internal/auth"
	"github.com/rosterly/rosterly/internal/repository/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(context.Background(), ":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestHasher(t *testing.T) *auth.Hasher {
	t.Helper()

	h, err := auth.NewHasher(auth.Params{Time: 1, MemoryKB: 1024, Threads: 1})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	return h
}
