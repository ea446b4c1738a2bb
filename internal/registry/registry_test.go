package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/lumenworks/askdoc/internal/models"
)

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRegister_createsProcessingDocument(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	doc, err := r.Register(ctx, "report.pdf", ".pdf")
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID == "" {
		t.Fatal("empty document id")
	}
	if doc.Status != models.StatusProcessing {
		t.Errorf("status = %q, want processing", doc.Status)
	}

	got, err := r.Get(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Filename != "report.pdf" || got.MediaType != ".pdf" {
		t.Errorf("stored doc = %+v", got)
	}
	if got.UploadedAt.IsZero() {
		t.Error("uploaded_at not set")
	}
}

func TestRegister_idsAreUnique(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		doc, err := r.Register(ctx, "f.txt", ".txt")
		if err != nil {
			t.Fatal(err)
		}
		if seen[doc.ID] {
			t.Fatalf("duplicate id %s", doc.ID)
		}
		seen[doc.ID] = true
	}
}

func TestLifecycle_readyAndFailed(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	doc, _ := r.Register(ctx, "a.txt", ".txt")
	if err := r.MarkReady(ctx, doc.ID, 42); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Get(ctx, doc.ID)
	if got.Status != models.StatusReady || got.ChunkCount != 42 {
		t.Errorf("after MarkReady: %+v", got)
	}

	doc2, _ := r.Register(ctx, "b.txt", ".txt")
	if err := r.MarkFailed(ctx, doc2.ID, "extraction failed: bad input"); err != nil {
		t.Fatal(err)
	}
	got2, _ := r.Get(ctx, doc2.ID)
	if got2.Status != models.StatusFailed {
		t.Errorf("status = %q, want failed", got2.Status)
	}
	if got2.FailureReason != "extraction failed: bad input" {
		t.Errorf("failure reason = %q", got2.FailureReason)
	}
}

func TestGet_notFound(t *testing.T) {
	r := openTestRegistry(t)
	_, err := r.Get(context.Background(), "no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkReady_notFound(t *testing.T) {
	r := openTestRegistry(t)
	err := r.MarkReady(context.Background(), "no-such-id", 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	doc, _ := r.Register(ctx, "a.txt", ".txt")
	if err := r.Delete(ctx, doc.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := r.Delete(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestList_andCount(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		if _, err := r.Register(ctx, name, ".txt"); err != nil {
			t.Fatal(err)
		}
	}
	docs, err := r.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Fatalf("list returned %d documents", len(docs))
	}
	n, err := r.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count = %d", n)
	}
}

func TestIDs(t *testing.T) {
	r := openTestRegistry(t)
	ctx := context.Background()

	doc1, _ := r.Register(ctx, "a.txt", ".txt")
	doc2, _ := r.Register(ctx, "b.txt", ".txt")
	ids, err := r.IDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v", ids)
	}
	found := map[string]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[doc1.ID] || !found[doc2.ID] {
		t.Errorf("ids missing registered documents: %v", ids)
	}
}

func TestOpen_persistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	doc, _ := r.Register(ctx, "keep.txt", ".txt")
	_ = r.MarkReady(ctx, doc.ID, 3)
	_ = r.Close()

	r2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Close()
	got, err := r2.Get(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusReady || got.ChunkCount != 3 {
		t.Errorf("reopened doc = %+v", got)
	}
}
