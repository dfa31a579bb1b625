package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NgumtsaB/web-programming-project/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "db.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestNewRequiresPath(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadInitializesEmptyDocument(t *testing.T) {
	s := newTestStore(t)
	doc, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Users == nil || doc.Catalogue == nil || doc.Sessions == nil {
		t.Fatalf("expected all collections initialized, got %+v", doc)
	}

	// The template must be persisted with every top-level key present.
	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read persisted template: %v", err)
	}
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		t.Fatalf("parse persisted template: %v", err)
	}
	for _, key := range []string{"users", "categories", "catalogue", "comments", "likes", "orders", "stats", "sessions"} {
		if _, ok := shape[key]; !ok {
			t.Fatalf("persisted template missing key %q", key)
		}
		if string(shape[key]) == "null" {
			t.Fatalf("persisted key %q is null, want empty container", key)
		}
	}
	var stats map[string]json.RawMessage
	if err := json.Unmarshal(shape["stats"], &stats); err != nil {
		t.Fatalf("parse stats: %v", err)
	}
	for _, key := range []string{"best_sellers", "new_arrivals", "featured"} {
		if string(stats[key]) != "[]" {
			t.Fatalf("stats.%s = %s, want []", key, stats[key])
		}
	}
}

func TestLoadFailsOnMalformedDocument(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write malformed file: %v", err)
	}
	if _, err := s.Load(); err == nil {
		t.Fatalf("expected parse error for malformed document")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	s := newTestStore(t)
	doc := NewDocument()
	doc.Users = append(doc.Users, domain.User{ID: 1, Email: "a@example.com", Role: domain.RoleCustomer})
	doc.Catalogue = append(doc.Catalogue, domain.Product{ID: 1, Title: "Mug", Price: 7.5, Stock: 3})
	if err := s.Save(doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got.Users) != 1 || got.Users[0].Email != "a@example.com" {
		t.Fatalf("unexpected users after reload: %+v", got.Users)
	}
	if len(got.Catalogue) != 1 || got.Catalogue[0].Price != 7.5 {
		t.Fatalf("unexpected catalogue after reload: %+v", got.Catalogue)
	}
}

func TestSaveFailureLeavesPreviousDocumentIntact(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root: directory permissions do not block writes")
	}
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "db.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	doc := NewDocument()
	doc.Users = append(doc.Users, domain.User{ID: 1, Email: "keep@example.com"})
	if err := s.Save(doc); err != nil {
		t.Fatalf("initial save: %v", err)
	}
	before, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read before: %v", err)
	}

	// Make the directory unwritable so the temp file cannot be created.
	if err := os.Chmod(dir, 0o500); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	defer os.Chmod(dir, 0o755)

	doc.Users = append(doc.Users, domain.User{ID: 2, Email: "lost@example.com"})
	if err := s.Save(doc); err == nil {
		t.Fatalf("expected save to fail in unwritable directory")
	}

	if err := os.Chmod(dir, 0o755); err != nil {
		t.Fatalf("chmod back: %v", err)
	}
	after, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read after: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("previous document changed after failed save")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "db.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Save(NewDocument()); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp artifact left behind: %s", e.Name())
		}
	}
}

func TestNextID(t *testing.T) {
	users := []domain.User{}
	userID := func(u domain.User) int { return u.ID }
	if got := NextID(users, userID); got != 1 {
		t.Fatalf("NextID(empty) = %d, want 1", got)
	}
	users = []domain.User{{ID: 1}, {ID: 3}}
	if got := NextID(users, userID); got != 4 {
		t.Fatalf("NextID([1 3]) = %d, want 4", got)
	}
}

func TestNextIDReusesFreedMaximum(t *testing.T) {
	// Deleting the highest id then allocating again must reuse it.
	products := []domain.Product{{ID: 1}, {ID: 2}, {ID: 3}}
	productID := func(p domain.Product) int { return p.ID }
	products = products[:2] // delete id 3
	if got := NextID(products, productID); got != 3 {
		t.Fatalf("NextID after deleting max = %d, want 3", got)
	}
	products = append(products, domain.Product{ID: 3})
	if got := NextID(products, productID); got != 4 {
		t.Fatalf("NextID = %d, want 4", got)
	}
}
