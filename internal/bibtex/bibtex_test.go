package bibtex

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestFormat_RoundTrip(t *testing.T) {
	e := NewEntry("Article", "Smith2026-ab")
	e.Set("author", "Smith, John and Doe, Jane")
	e.Set("title", "Test {Paper} Title")
	e.Set("journal", "Nature")
	e.Set("year", "2026")

	got := Format(e)

	if !strings.HasPrefix(got, "@article{Smith2026-ab,\n") {
		t.Errorf("Format() should start with @article{Smith2026-ab, got:\n%s", got)
	}
	if !strings.Contains(got, "  title = {Test {Paper} Title},\n") {
		t.Errorf("Format() should keep title markup, got:\n%s", got)
	}
	if !strings.HasSuffix(got, "}\n") {
		t.Errorf("Format() should end with }, got:\n%s", got)
	}

	parsed, err := Parse(strings.NewReader(got))
	if err != nil {
		t.Fatalf("Parse(Format()) error = %v", err)
	}
	if !reflect.DeepEqual(parsed[0].Names(), e.Names()) {
		t.Errorf("field order = %v, want %v", parsed[0].Names(), e.Names())
	}
	for _, name := range e.Names() {
		if parsed[0].Field(name) != e.Field(name) {
			t.Errorf("field %s = %q, want %q", name, parsed[0].Field(name), e.Field(name))
		}
	}
}

func TestFormatList(t *testing.T) {
	a := NewEntry("misc", "a")
	a.Set("title", "A")
	b := NewEntry("misc", "b")
	b.Set("title", "B")

	got := FormatList([]*Entry{a, b})
	want := "@misc{a,\n  title = {A},\n}\n\n@misc{b,\n  title = {B},\n}\n"
	if got != want {
		t.Errorf("FormatList() = %q, want %q", got, want)
	}
}

func TestAuthors(t *testing.T) {
	tests := []struct {
		field string
		want  []string
	}{
		{"", nil},
		{"Doe, Jane", []string{"Doe, Jane"}},
		{"Doe, Jane and Roe, Richard and  Poe, E.", []string{"Doe, Jane", "Roe, Richard", "Poe, E."}},
	}
	for _, tt := range tests {
		if got := Authors(tt.field); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Authors(%q) = %v, want %v", tt.field, got, tt.want)
		}
	}
}

func TestIndex_Match(t *testing.T) {
	entries, err := Parse(strings.NewReader(zoteroExport))
	if err != nil {
		t.Fatal(err)
	}
	idx := BuildIndex(entries)

	if !idx.Keys["doe2024"] || !idx.Keys["roe_notes"] {
		t.Errorf("Keys = %v, want both keys", idx.Keys)
	}

	tests := []struct {
		name    string
		doi     string
		title   string
		wantKey string
		wantOK  bool
	}{
		{"doi exact", "10.1234/things", "", "doe2024", true},
		{"doi url prefix and case", "https://doi.org/10.1234/THINGS", "", "doe2024", true},
		{"title ignores braces and case", "", "a study of  things", "doe2024", true},
		{"doi wins over title", "10.1234/things", "Field notes", "doe2024", true},
		{"title fallback", "10.9999/other", "Field Notes", "roe_notes", true},
		{"no match", "10.9999/other", "Unrelated", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := idx.Match(tt.doi, tt.title)
			if key != tt.wantKey || ok != tt.wantOK {
				t.Errorf("Match(%q, %q) = (%q, %v), want (%q, %v)", tt.doi, tt.title, key, ok, tt.wantKey, tt.wantOK)
			}
		})
	}
}

func TestLoadIndex_MissingFile(t *testing.T) {
	idx, err := LoadIndex(filepath.Join(t.TempDir(), "nope.bib"))
	if err != nil {
		t.Fatalf("LoadIndex() error = %v", err)
	}
	if len(idx.Keys) != 0 {
		t.Errorf("LoadIndex() on missing file returned %d keys", len(idx.Keys))
	}
}

func TestLoadIndex_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bib")
	if err := os.WriteFile(path, []byte("@article{k, title = {x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadIndex(path); err == nil {
		t.Error("LoadIndex() on malformed file should fail")
	}
}
