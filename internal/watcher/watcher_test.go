package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lumenworks/askdoc/internal/models"
)

type fakeIngester struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeIngester) IngestPath(ctx context.Context, path string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.paths = append(f.paths, path)
	return &models.Document{ID: "doc-" + filepath.Base(path), Status: models.StatusReady}, nil
}

func (f *fakeIngester) ingested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func TestWatcher_ingestsAndConsumesDroppedFile(t *testing.T) {
	dir := t.TempDir()
	ing := &fakeIngester{}
	w := New([]string{dir}, []string{".txt"}, ing, zap.NewNop(), WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "dropped.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(ing.ingested()) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	got := ing.ingested()
	if len(got) == 0 {
		t.Fatal("dropped file was not ingested")
	}
	if !strings.HasSuffix(got[0], "dropped.txt") {
		t.Errorf("ingested path = %q", got[0])
	}
	// Consumed from the inbox after successful ingestion.
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("ingested file still present in inbox")
}

func TestWatcher_extensionFilter(t *testing.T) {
	dir := t.TempDir()
	ing := &fakeIngester{}
	w := New([]string{dir}, []string{".txt"}, ing, zap.NewNop(), WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "skip.xyz"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := ing.ingested(); len(got) != 0 {
		t.Errorf("non-matching file was ingested: %v", got)
	}
}

func TestWatcher_syncExistingPicksUpBacklog(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "backlog.txt"), []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignore.xyz"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	ing := &fakeIngester{}
	w := New([]string{dir}, []string{".txt"}, ing, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SyncExisting(ctx)
	got := ing.ingested()
	if len(got) != 1 || !strings.HasSuffix(got[0], "backlog.txt") {
		t.Errorf("sync ingested %v", got)
	}
}

func TestWatcher_failedIngestionLeavesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	ing := &fakeIngester{err: os.ErrInvalid}
	w := New([]string{dir}, []string{".txt"}, ing, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SyncExisting(ctx)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("failed file should stay in inbox: %v", err)
	}
}

func TestWatcher_startCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "inbox")
	w := New([]string{root}, nil, &fakeIngester{}, zap.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root not created: %v", err)
	}
}
