package main

import (
	"testing"

	"github.com/sylvarum/bibsync/internal/zotero"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer title here", 10, "a longe..."},
		{"森林生態学の研究", 10, "森林生..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.width); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestSummarizeItems(t *testing.T) {
	items := []zotero.Item{
		{
			Key: "AB12CD34",
			Data: map[string]any{
				"title":    "Forest Dynamics",
				"itemType": "journalArticle",
				"date":     "2024-03-01",
				"creators": []any{map[string]any{"creatorType": "author", "firstName": "Jane", "lastName": "Doe"}},
			},
		},
		{Key: "EF56GH78", Data: map[string]any{"itemType": "note"}},
	}

	got := summarizeItems(items)
	if len(got) != 2 {
		t.Fatalf("summarizeItems() returned %d summaries", len(got))
	}
	if got[0].Author != "Doe" || got[0].Year != "2024" || got[0].ItemType != "journalArticle" {
		t.Errorf("summary = %+v", got[0])
	}
	if got[1].Title != "(untitled)" {
		t.Errorf("untitled item title = %q", got[1].Title)
	}
}

func TestFindCollection(t *testing.T) {
	collections := []zotero.Collection{
		{Key: "K1", Data: zotero.CollectionData{Name: "Forest Ecology"}},
		{Key: "K2", Data: zotero.CollectionData{Name: "Mycology"}},
	}

	c, ok := findCollection(collections, "mycology")
	if !ok || c.Key != "K2" {
		t.Errorf("findCollection(mycology) = %v, %v", c.Key, ok)
	}
	if _, ok := findCollection(collections, "Botany"); ok {
		t.Error("findCollection(Botany) should not match")
	}
}
