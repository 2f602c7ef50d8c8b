package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sakif/devnote/internal/apperror"
	"github.com/sakif/devnote/internal/repository"
)

// newTestDB opens a fresh in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Compile-time check that DB satisfies the repository contract.
var _ repository.StateRepository = (*DB)(nil)

// =========================================================================
// GET / PUT TESTS
// =========================================================================

func TestGet_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Get(context.Background(), "alice", repository.KeyNotes)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestPutThenGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Put(ctx, "alice", repository.KeyViewMode, "compact"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := db.Get(ctx, "alice", repository.KeyViewMode)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "compact" {
		t.Errorf("Get() = %q, want %q", got, "compact")
	}
}

func TestPut_Overwrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.Put(ctx, "alice", repository.KeyViewMode, "compact")
	if err := db.Put(ctx, "alice", repository.KeyViewMode, "detailed"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, _ := db.Get(ctx, "alice", repository.KeyViewMode)
	if got != "detailed" {
		t.Errorf("Get() = %q, want %q", got, "detailed")
	}
}

func TestPut_OwnersAreIsolated(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.Put(ctx, "alice", repository.KeyNotes, `[{"id":"1"}]`)

	_, err := db.Get(ctx, "bob", repository.KeyNotes)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get(bob) error = %v, want ErrNotFound", err)
	}
}

func TestPut_EmptyValue(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Put(ctx, "alice", repository.KeyNotes, ""); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := db.Get(ctx, "alice", repository.KeyNotes)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "" {
		t.Errorf("Get() = %q, want empty", got)
	}
}

// =========================================================================
// PUTALL / OWNERS TESTS
// =========================================================================

func TestPutAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	entries := map[string]string{
		repository.KeyNotes:      `[]`,
		repository.KeyCategories: `[{"id":"c1","name":"Go","parentId":null}]`,
		repository.KeyViewMode:   "compact",
	}
	if err := db.PutAll(ctx, "alice", entries); err != nil {
		t.Fatalf("PutAll() error = %v", err)
	}

	for key, want := range entries {
		got, err := db.Get(ctx, "alice", key)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", key, err)
		}
		if got != want {
			t.Errorf("Get(%s) = %q, want %q", key, got, want)
		}
	}
}

func TestPutAll_CanceledContextWritesNothing(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.PutAll(ctx, "alice", map[string]string{repository.KeyNotes: "[]"})
	if err == nil {
		t.Fatal("PutAll() with canceled context should fail")
	}

	_, err = db.Get(context.Background(), "alice", repository.KeyNotes)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestOwners(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	owners, err := db.Owners(ctx)
	if err != nil {
		t.Fatalf("Owners() error = %v", err)
	}
	if owners == nil || len(owners) != 0 {
		t.Errorf("Owners() on empty db = %v, want empty non-nil", owners)
	}

	db.Put(ctx, "bob", repository.KeyNotes, "[]")
	db.Put(ctx, "alice", repository.KeyNotes, "[]")
	db.Put(ctx, "alice", repository.KeyViewMode, "compact")

	owners, _ = db.Owners(ctx)
	if len(owners) != 2 || owners[0] != "alice" || owners[1] != "bob" {
		t.Errorf("Owners() = %v, want [alice bob]", owners)
	}
}

// =========================================================================
// TIMESTAMP / MIGRATION TESTS
// =========================================================================

func TestUpdatedAt(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	db.now = func() time.Time { return fixed }

	db.Put(ctx, "alice", repository.KeyNotes, "[]")

	got, err := db.UpdatedAt(ctx, "alice", repository.KeyNotes)
	if err != nil {
		t.Fatalf("UpdatedAt() error = %v", err)
	}
	if !got.Equal(fixed) {
		t.Errorf("UpdatedAt() = %v, want %v", got, fixed)
	}

	if _, err := db.UpdatedAt(ctx, "alice", "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdatedAt(missing) error = %v, want ErrNotFound", err)
	}
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devnote.db")
	ctx := context.Background()

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	db.Put(ctx, "alice", repository.KeyViewMode, "detailed")
	db.Close()

	// Migrations run again on reopen and must leave existing rows alone.
	db, err = New(path)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer db.Close()

	got, err := db.Get(ctx, "alice", repository.KeyViewMode)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "detailed" {
		t.Errorf("Get() = %q, want %q", got, "detailed")
	}
}
