package prefs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "lightmode"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ok, err := Has(ctx, s, "lightmode"); err != nil || ok {
		t.Fatalf("Has on empty store = %v, %v", ok, err)
	}

	if err := s.Set(ctx, "lightmode", "1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, err := s.Get(ctx, "lightmode"); err != nil || v != "1" {
		t.Errorf("Get = %q, %v", v, err)
	}
	if ok, _ := Has(ctx, s, "lightmode"); !ok {
		t.Error("Has should report the key")
	}

	if err := s.Delete(ctx, "lightmode"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok, _ := Has(ctx, s, "lightmode"); ok {
		t.Error("key should be gone after Delete")
	}
	if err := s.Delete(ctx, "lightmode"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	exercise(t, s)
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	ctx := context.Background()

	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if err := s.Set(ctx, "lightmode", "1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if v, err := reopened.Get(ctx, "lightmode"); err != nil || v != "1" {
		t.Errorf("expected persisted value, got %q, %v", v, err)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestRedisStoreImplementsStore(t *testing.T) {
	var s Store = NewRedisStore("127.0.0.1:0", "littr:")
	if s == nil {
		t.Fatal("expected store")
	}
	s.(*RedisStore).Close()
}
