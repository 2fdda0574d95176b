package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-runewidth"

	"github.com/sylvarum/bibsync/internal/storage"
	"github.com/sylvarum/bibsync/internal/validate"
	"github.com/sylvarum/bibsync/internal/zotero"
)

// Constants for output formatting.
const (
	DefaultListLimit = zotero.DefaultListLimit
	TitleMaxWidth    = 70 // display columns for titles in listings
)

// outputJSON writes a value as formatted JSON to stdout. HTML characters and
// non-ASCII text are written as-is.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if jsonOutput {
		outputJSON(ErrorResponse{Error: msg})
	} else {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	}
	os.Exit(code)
}

// warn prints a warning to stderr.
func warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// truncateString shortens s to at most width display columns, adding "..."
// if truncated. Wide and combining characters are measured by their
// terminal width, not their byte length.
func truncateString(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}

// printIssues prints a numbered validation report.
func printIssues(issues []validate.Issue) {
	fmt.Println("BIB validation FAILED:")
	for i, issue := range issues {
		fmt.Printf(" %d. %s\n", i+1, issue)
	}
}

// ItemSummary is the JSON form of a remote item in listings.
type ItemSummary struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	Year     string `json:"year,omitempty"`
	ItemType string `json:"item_type"`
	URL      string `json:"url,omitempty"`
}

func summarizeItems(items []zotero.Item) []ItemSummary {
	out := make([]ItemSummary, len(items))
	for i, item := range items {
		title := item.Title()
		if title == "" {
			title = "(untitled)"
		}
		out[i] = ItemSummary{
			Key:      item.Key,
			Title:    title,
			Author:   item.FirstAuthor(),
			Year:     item.Year(),
			ItemType: item.ItemType(),
			URL:      item.URL(),
		}
	}
	return out
}

// printItemSummary prints one numbered item. The type is shown in listings;
// the URL in search results.
func printItemSummary(n int, s ItemSummary, showType, showURL bool) {
	fmt.Printf("%3d. [%s] %s\n", n, s.Key, truncateString(s.Title, TitleMaxWidth))

	byline := s.Author
	if s.Year != "" {
		if byline != "" {
			byline += ", "
		}
		byline += s.Year
	}
	if byline != "" {
		if showType {
			byline += " (" + s.ItemType + ")"
		}
		fmt.Printf("       %s\n", byline)
	}
	if showURL && s.URL != "" {
		fmt.Printf("       URL: %s\n", s.URL)
	}
}

// printRecordSummary prints one numbered record of the local index.
func printRecordSummary(n int, r storage.Record) {
	fmt.Printf("%3d. [%s] %s\n", n, r.Key, truncateString(r.Title, TitleMaxWidth))
	byline := truncateString(r.Authors, TitleMaxWidth-10)
	if r.Year != "" {
		if byline != "" {
			byline += ", "
		}
		byline += r.Year
	}
	if byline != "" {
		fmt.Printf("       %s\n", byline)
	}
}
