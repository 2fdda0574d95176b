package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sylvarum/bibsync/internal/bibtex"
)

const testBib = `@article{smith2026,
  title = {Machine Learning in {Biology}},
  author = {Smith, John and Doe, Jane},
  journal = {Nature},
  year = {2026},
  doi = {10.1234/smith},
}

@inproceedings{jones2025,
  title = {Deep Learning for Protein Structure},
  author = {Jones, Alice},
  booktitle = {Proceedings of ISMB},
  year = {2025},
}

@book{brown2024,
  title = {Statistical Methods in Genomics},
  author = {Brown, Bob and White, Carol},
  publisher = {Springer},
  year = {2024},
}

@misc{smith2026,
  title = {Duplicate entry},
}
`

// setupTestDB creates a test database indexed from testBib.
func setupTestDB(t *testing.T) (*DB, string) {
	t.Helper()

	tmpDir := t.TempDir()
	bibPath := filepath.Join(tmpDir, "bibliography.bib")
	if err := os.WriteFile(bibPath, []byte(testBib), 0644); err != nil {
		t.Fatalf("Failed to write test bib: %v", err)
	}

	db, err := OpenDB(filepath.Join(tmpDir, ".bibsync", "index.db"))
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	n, err := db.RebuildFromFile(bibPath)
	if err != nil {
		t.Fatalf("Failed to rebuild DB: %v", err)
	}
	if n != 3 {
		t.Fatalf("RebuildFromFile() = %d, want 3 (duplicate key indexed once)", n)
	}
	return db, bibPath
}

func TestNewRecord(t *testing.T) {
	e := bibtex.NewEntry("InProceedings", "k")
	e.Set("title", "{BEAST} 2")
	e.Set("author", "Doe, Jane and Roe, Rick")
	e.Set("booktitle", "Proc. X")
	e.Set("year", "2020")

	r := NewRecord(e)
	if r.Title != "BEAST 2" {
		t.Errorf("Title = %q, want braces stripped", r.Title)
	}
	if r.Authors != "Doe, Jane; Roe, Rick" {
		t.Errorf("Authors = %q", r.Authors)
	}
	if r.Venue != "Proc. X" {
		t.Errorf("Venue = %q, want booktitle fallback", r.Venue)
	}
	if r.Type != "inproceedings" {
		t.Errorf("Type = %q", r.Type)
	}
}

func TestGetByKey(t *testing.T) {
	db, _ := setupTestDB(t)

	r, err := db.GetByKey("smith2026")
	if err != nil {
		t.Fatalf("GetByKey() error = %v", err)
	}
	if r == nil {
		t.Fatal("GetByKey() returned nil")
	}
	if r.Title != "Machine Learning in Biology" {
		t.Errorf("Title = %q, want first occurrence", r.Title)
	}
	if r.DOI != "10.1234/smith" || r.Venue != "Nature" {
		t.Errorf("GetByKey() = %+v", r)
	}

	missing, err := db.GetByKey("nobody")
	if err != nil {
		t.Fatalf("GetByKey(missing) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetByKey(missing) = %+v, want nil", missing)
	}
}

func TestSearch(t *testing.T) {
	db, _ := setupTestDB(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"title word", "learning", []string{"smith2026", "jones2025"}},
		{"author", "white", []string{"brown2024"}},
		{"venue", "springer", []string{"brown2024"}},
		{"year", "2025", []string{"jones2025"}},
		{"special chars", "protein-structure", []string{"jones2025"}},
		{"no match", "quantum", nil},
		{"empty", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Search(tt.query, 10)
			if err != nil {
				t.Fatalf("Search(%q) error = %v", tt.query, err)
			}
			if keys := recordKeys(got); strings.Join(keys, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Search(%q) = %v, want %v", tt.query, keys, tt.want)
			}
		})
	}
}

func TestSearch_Limit(t *testing.T) {
	db, _ := setupTestDB(t)

	got, err := db.Search("learning", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Key != "smith2026" {
		t.Errorf("Search() = %v, want only the first match in document order", recordKeys(got))
	}
}

func TestSearchField(t *testing.T) {
	db, _ := setupTestDB(t)

	got, err := db.SearchField("author", "Ali", 10)
	if err != nil {
		t.Fatalf("SearchField(author) error = %v", err)
	}
	if keys := recordKeys(got); len(keys) != 1 || keys[0] != "jones2025" {
		t.Errorf("SearchField(author, Ali) = %v, want prefix match on Alice", keys)
	}

	got, err = db.SearchField("title", "genomics", 10)
	if err != nil {
		t.Fatalf("SearchField(title) error = %v", err)
	}
	if keys := recordKeys(got); len(keys) != 1 || keys[0] != "brown2024" {
		t.Errorf("SearchField(title, genomics) = %v", keys)
	}

	// Author names are not searched by the title column.
	got, _ = db.SearchField("title", "smith", 10)
	if len(got) != 0 {
		t.Errorf("SearchField(title, smith) = %v, want none", recordKeys(got))
	}

	if _, err := db.SearchField("venue", "x", 10); err == nil {
		t.Error("SearchField(unknown) should fail")
	}
}

func TestListAllAndCount(t *testing.T) {
	db, _ := setupTestDB(t)

	all, err := db.ListAll(0)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(recordKeys(all), ","); got != "smith2026,jones2025,brown2024" {
		t.Errorf("ListAll() = %s, want document order", got)
	}

	limited, _ := db.ListAll(2)
	if len(limited) != 2 {
		t.Errorf("ListAll(2) returned %d records", len(limited))
	}

	count, err := db.Count()
	if err != nil || count != 3 {
		t.Errorf("Count() = %d, %v; want 3", count, err)
	}
}

func TestRebuildReplacesContents(t *testing.T) {
	db, _ := setupTestDB(t)

	e := bibtex.NewEntry("misc", "only")
	e.Set("title", "Only Entry")
	if _, err := db.RebuildFromEntries([]*bibtex.Entry{e}); err != nil {
		t.Fatal(err)
	}

	count, _ := db.Count()
	if count != 1 {
		t.Errorf("Count() = %d after rebuild, want 1", count)
	}
	if got, _ := db.Search("learning", 10); len(got) != 0 {
		t.Errorf("stale FTS rows survived rebuild: %v", recordKeys(got))
	}
}

func TestIsStale(t *testing.T) {
	db, bibPath := setupTestDB(t)

	stale, err := db.IsStale(bibPath)
	if err != nil {
		t.Fatal(err)
	}
	if stale {
		t.Error("IsStale() = true right after rebuild")
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(bibPath, later, later); err != nil {
		t.Fatal(err)
	}
	stale, _ = db.IsStale(bibPath)
	if !stale {
		t.Error("IsStale() = false after the file changed")
	}

	fresh, err := OpenDB(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer fresh.Close()
	if stale, _ := fresh.IsStale(bibPath); !stale {
		t.Error("IsStale() = false for a never-built index")
	}
}

func TestRebuildFromFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bib")
	os.WriteFile(path, []byte("@article{k, title = {open"), 0644)

	db, err := OpenDB(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.RebuildFromFile(path); err == nil {
		t.Error("RebuildFromFile() should fail on malformed input")
	}
}

func recordKeys(records []Record) []string {
	var keys []string
	for _, r := range records {
		keys = append(keys, r.Key)
	}
	return keys
}
