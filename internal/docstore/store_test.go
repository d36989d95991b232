package docstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testDocument(id string) *Document {
	return &Document{
		ID:          id,
		FileName:    id + ".pdf",
		FileType:    "pdf",
		FileSize:    2048,
		ContentType: "application/pdf",
		FilePath:    "/var/lib/docqa/uploads/" + id + ".pdf",
		UploadedAt:  time.Now().UTC(),
		Status:      StatusPending,
	}
}

func Test_Store_InsertAndGet(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	want := testDocument("doc-1")
	if err := s.Insert(ctx, want); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FileName != want.FileName || got.FileType != want.FileType {
		t.Errorf("got %q/%q, want %q/%q", got.FileName, got.FileType, want.FileName, want.FileType)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %s, want %s", got.Status, StatusPending)
	}
}

func Test_Store_GetMissing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func Test_Store_MarkCompleted(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, testDocument("doc-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.MarkCompleted(ctx, "doc-1", 12); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	got, err := s.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", got.Status, StatusCompleted)
	}
	if got.ChunkCount != 12 {
		t.Errorf("chunk count = %d, want 12", got.ChunkCount)
	}
}

func Test_Store_MarkCompletedOnlyFromPending(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, testDocument("doc-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.MarkError(ctx, "doc-1", "embedding failed"); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	// A document already in error must not move back to completed.
	if err := s.MarkCompleted(ctx, "doc-1", 3); err == nil {
		t.Fatal("expected error marking errored document completed")
	}

	got, err := s.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusError {
		t.Errorf("status = %s, want %s", got.Status, StatusError)
	}
	if got.ErrorMessage != "embedding failed" {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
}

func Test_Store_MarkErrorFromCompleted(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, testDocument("doc-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.MarkCompleted(ctx, "doc-1", 5); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if err := s.MarkError(ctx, "doc-1", "collection lost"); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	got, err := s.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusError {
		t.Errorf("status = %s, want %s", got.Status, StatusError)
	}
}

func Test_Store_ListPagination(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		d := testDocument("doc-" + string(rune('a'+i)))
		d.UploadedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.Insert(ctx, d); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	docs, total, err := s.List(ctx, 2, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2", len(docs))
	}
	// Newest first, skipping one: doc-d then doc-c.
	if docs[0].ID != "doc-d" || docs[1].ID != "doc-c" {
		t.Errorf("order = %s, %s; want doc-d, doc-c", docs[0].ID, docs[1].ID)
	}
}

func Test_Store_IDsByStatus(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"doc-1", "doc-2", "doc-3"} {
		if err := s.Insert(ctx, testDocument(id)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := s.MarkCompleted(ctx, "doc-1", 4); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if err := s.MarkCompleted(ctx, "doc-3", 7); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	ids, err := s.IDsByStatus(ctx, StatusCompleted)
	if err != nil {
		t.Fatalf("ids by status: %v", err)
	}
	if len(ids) != 2 || ids[0] != "doc-1" || ids[1] != "doc-3" {
		t.Errorf("ids = %v, want [doc-1 doc-3]", ids)
	}
}

func Test_Store_Delete(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, testDocument("doc-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err := s.Delete(ctx, "doc-1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !ok {
		t.Error("expected delete to report an existing row")
	}

	ok, err = s.Delete(ctx, "doc-1")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if ok {
		t.Error("expected second delete to report no row")
	}

	if _, err := s.Get(ctx, "doc-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
