package catalog

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/book"
)

type mockSource struct {
	records []book.Record
	err     error
	calls   atomic.Int32
}

func (m *mockSource) Load(_ context.Context) ([]book.Record, error) {
	m.calls.Add(1)
	return m.records, m.err
}

func sampleRecords() []book.Record {
	return []book.Record{
		{ID: 111, Title: "A", Category: "Fiction"},
		{ID: 222, Title: "B", Category: "Nonfiction"},
		{ID: 333, Title: "C", Category: "Fiction"},
		{ID: 444, Title: "D", Category: "Children's Fiction"},
		{ID: 555, Title: "E"},
	}
}

func TestStore_LoadOnceConcurrently(t *testing.T) {
	src := &mockSource{records: sampleRecords()}
	s := New(src)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Load(context.Background()); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := src.calls.Load(); got != 1 {
		t.Errorf("source loaded %d times, want 1", got)
	}
	if s.Len() != 5 {
		t.Errorf("Len() = %d, want 5", s.Len())
	}
}

func TestStore_LoadErrorCached(t *testing.T) {
	src := &mockSource{err: errors.New("file not found")}
	s := New(src)

	err := s.Load(context.Background())
	if !errors.Is(err, domain.ErrCatalogLoad) {
		t.Fatalf("expected ErrCatalogLoad, got %v", err)
	}
	if err2 := s.Load(context.Background()); !errors.Is(err2, domain.ErrCatalogLoad) {
		t.Errorf("second Load: expected cached ErrCatalogLoad, got %v", err2)
	}
	if src.calls.Load() != 1 {
		t.Errorf("source loaded %d times, want 1", src.calls.Load())
	}
}

func TestStore_DuplicateID(t *testing.T) {
	src := &mockSource{records: []book.Record{{ID: 1}, {ID: 2}, {ID: 1}}}
	if err := New(src).Load(context.Background()); !errors.Is(err, domain.ErrCatalogLoad) {
		t.Errorf("expected ErrCatalogLoad, got %v", err)
	}
}

func TestStore_Lookup(t *testing.T) {
	s := New(&mockSource{records: sampleRecords()})
	if _, ok := s.Lookup(111); ok {
		t.Error("Lookup before Load must miss")
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r, ok := s.Lookup(333)
	if !ok || r.Title != "C" {
		t.Errorf("Lookup(333) = %+v, %v", r, ok)
	}
	if _, ok := s.Lookup(999); ok {
		t.Error("Lookup(999) found a record")
	}
}

func TestStore_GetByIdentifiers(t *testing.T) {
	s := New(&mockSource{records: sampleRecords()})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := s.GetByIdentifiers([]int64{111, 999, 333, 111})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[111].Title != "A" || got[333].Title != "C" {
		t.Errorf("unexpected records: %+v", got)
	}
}

func TestStore_Categories(t *testing.T) {
	s := New(&mockSource{records: sampleRecords()})
	if got := s.Categories(); !reflect.DeepEqual(got, []string{"All"}) {
		t.Errorf("Categories() before Load = %v", got)
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"All", "Children's Fiction", "Fiction", "Nonfiction"}
	got := s.Categories()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Categories() = %v, want %v", got, want)
	}

	got[1] = "mutated"
	if s.Categories()[1] != "Children's Fiction" {
		t.Error("Categories() leaked internal slice")
	}
}

func TestStore_HasCategory(t *testing.T) {
	s := New(&mockSource{records: sampleRecords()})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, label := range []string{"All", "Fiction", "Nonfiction", "Children's Fiction"} {
		if !s.HasCategory(label) {
			t.Errorf("HasCategory(%q) = false", label)
		}
	}
	for _, label := range []string{"fiction", "", "Poetry", "Zzz"} {
		if s.HasCategory(label) {
			t.Errorf("HasCategory(%q) = true", label)
		}
	}
}

func TestStore_Ready(t *testing.T) {
	s := New(&mockSource{records: sampleRecords()})
	if !errors.Is(s.Ready(), domain.ErrNotReady) {
		t.Errorf("Ready before Load = %v, want ErrNotReady", s.Ready())
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Ready(); err != nil {
		t.Errorf("Ready after Load = %v", err)
	}

	failed := New(&mockSource{err: errors.New("corrupt")})
	_ = failed.Load(context.Background())
	if !errors.Is(failed.Ready(), domain.ErrNotReady) {
		t.Errorf("Ready after failed Load = %v, want ErrNotReady", failed.Ready())
	}
}
