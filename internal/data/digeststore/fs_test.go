package digeststore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestFSStoreMissingDocument(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), testLogger(t))
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	got, err := store.Get(context.Background(), digests.KindTerms)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing document, got %q", got)
	}
}

func TestFSStorePutReplacesWhole(t *testing.T) {
	root := t.TempDir()
	store, err := NewFSStore(root, testLogger(t))
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()

	first := []byte(`{"entries":[],"generated_at":"2025-01-01T00:00:00Z"}`)
	if err := store.Put(ctx, digests.KindPeriods, first); err != nil {
		t.Fatalf("Put first: %v", err)
	}
	second := []byte(`{"entries":[{"period":"2025-Q1"}],"generated_at":"2025-04-01T00:00:00Z"}`)
	if err := store.Put(ctx, digests.KindPeriods, second); err != nil {
		t.Fatalf("Put second: %v", err)
	}

	got, err := store.Get(ctx, digests.KindPeriods)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, second) {
		t.Fatalf("Get after replace: got %q, want %q", got, second)
	}

	// No stray temp files left behind.
	entries, err := os.ReadDir(filepath.Join(root, "digests"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly the document file, got %d entries", len(entries))
	}
}

func TestFSStoreRejectsUnknownKind(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), testLogger(t))
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	if _, err := store.Get(context.Background(), "bogus"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if err := store.Put(context.Background(), "bogus", []byte("{}")); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
