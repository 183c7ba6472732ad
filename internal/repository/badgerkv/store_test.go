package badgerkv

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/bookrec/internal/db"
)

func openTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestGet_Missing(t *testing.T) {
	s := openTestStore(t, "")
	defer func() { _ = s.Close() }()

	_, err := s.Get(context.Background(), "bookrec:emb_cache:none")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSetGet_InMemory(t *testing.T) {
	s := openTestStore(t, "")
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	if err := s.SetWithTTL(ctx, "k", []byte{1, 2, 3, 4}, 0); err != nil {
		t.Fatalf("SetWithTTL: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 4 || got[3] != 4 {
		t.Errorf("value = %v", got)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := openTestStore(t, dir)
	if err := s.SetWithTTL(ctx, "k", []byte("vector"), 0); err != nil {
		t.Fatalf("SetWithTTL: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s = openTestStore(t, dir)
	defer func() { _ = s.Close() }()
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "vector" {
		t.Errorf("got %q err=%v", got, err)
	}
}
