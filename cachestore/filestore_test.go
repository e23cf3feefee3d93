package cachestore

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return fs
}

func TestPutMatchRoundtrip(t *testing.T) {
	fs := newTestStore(t)
	gen, err := fs.Open("v1.0.0")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	d := Descriptor{Method: "GET", URL: "/api/expenses/?page=2"}
	entry := &Entry{
		Status:    200,
		Header:    header,
		Body:      []byte(`{"results":[]}`),
		FetchedAt: time.Now(),
	}

	if err := gen.Put(d, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := gen.Match(d)
	if !ok {
		t.Fatal("Match returned false after Put")
	}
	if got.Status != 200 {
		t.Errorf("Status = %d, want 200", got.Status)
	}
	if string(got.Body) != `{"results":[]}` {
		t.Errorf("Body = %s", got.Body)
	}
	if got.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", got.Header.Get("Content-Type"))
	}
}

func TestMatchMiss(t *testing.T) {
	fs := newTestStore(t)
	gen, _ := fs.Open("v1")
	if _, ok := gen.Match(Descriptor{Method: "GET", URL: "/nope"}); ok {
		t.Fatal("Match returned true for absent entry")
	}
}

func TestPutOverwrites(t *testing.T) {
	fs := newTestStore(t)
	gen, _ := fs.Open("v1")
	d := Descriptor{Method: "GET", URL: "/api/auth/profile/"}

	if err := gen.Put(d, &Entry{Status: 200, Body: []byte("old")}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := gen.Put(d, &Entry{Status: 200, Body: []byte("new")}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := gen.Match(d)
	if !ok {
		t.Fatal("Match returned false after overwrite")
	}
	if string(got.Body) != "new" {
		t.Fatalf("expected overwritten body, got %q", got.Body)
	}

	keys, err := gen.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key after overwrite, got %d", len(keys))
	}
}

func TestGenerationsAndEviction(t *testing.T) {
	fs := newTestStore(t)
	d := Descriptor{Method: "GET", URL: "/"}

	v1, _ := fs.Open("v1")
	v2, _ := fs.Open("v2")
	if err := v1.Put(d, &Entry{Status: 200, Body: []byte("one")}); err != nil {
		t.Fatalf("Put v1: %v", err)
	}
	if err := v2.Put(d, &Entry{Status: 200, Body: []byte("two")}); err != nil {
		t.Fatalf("Put v2: %v", err)
	}

	names, err := fs.Generations()
	if err != nil {
		t.Fatalf("Generations: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 generations, got %v", names)
	}

	if err := fs.DeleteGeneration("v1"); err != nil {
		t.Fatalf("DeleteGeneration: %v", err)
	}
	names, _ = fs.Generations()
	if len(names) != 1 || names[0] != "v2" {
		t.Fatalf("expected only v2 after eviction, got %v", names)
	}

	// v2 entries must survive the eviction of v1.
	got, ok := v2.Match(d)
	if !ok {
		t.Fatal("v2 entry lost after evicting v1")
	}
	if string(got.Body) != "two" {
		t.Fatalf("v2 entry corrupted after evicting v1: %q", got.Body)
	}
}

func TestDeleteEntry(t *testing.T) {
	fs := newTestStore(t)
	gen, _ := fs.Open("v1")
	d := Descriptor{Method: "GET", URL: "/manifest.json"}

	if err := gen.Put(d, &Entry{Status: 200}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := gen.Delete(d); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := gen.Match(d); ok {
		t.Fatal("entry still present after Delete")
	}
	// Deleting a missing entry is not an error.
	if err := gen.Delete(d); err != nil {
		t.Fatalf("Delete of absent entry: %v", err)
	}
}

func TestDescriptorKey(t *testing.T) {
	tests := []struct {
		name string
		a, b Descriptor
		same bool
	}{
		{"same method and url", Descriptor{"GET", "/a"}, Descriptor{"GET", "/a"}, true},
		{"method differs", Descriptor{"GET", "/a"}, Descriptor{"POST", "/a"}, false},
		{"url differs", Descriptor{"GET", "/a"}, Descriptor{"GET", "/b"}, false},
		{"query differs", Descriptor{"GET", "/a?p=1"}, Descriptor{"GET", "/a?p=2"}, false},
		{"default method is GET", Descriptor{"", "/a"}, Descriptor{"GET", "/a"}, true},
	}

	for _, tt := range tests {
		got := tt.a.Key() == tt.b.Key()
		if got != tt.same {
			t.Errorf("%s: keys equal = %v, want %v", tt.name, got, tt.same)
		}
	}
}

func TestDescriptorKeyLongURL(t *testing.T) {
	d := Descriptor{Method: "GET", URL: "/api/expenses/?" + strings.Repeat("p=x&", 200)}
	key := d.Key()
	if len(key) > 200 {
		t.Fatalf("long key not hashed, len=%d", len(key))
	}
	if !strings.Contains(key, "hash_") {
		t.Fatalf("expected hashed key, got %s", key)
	}
}
