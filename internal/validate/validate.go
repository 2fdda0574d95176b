// Package validate checks a bibliography against the rules a citation-ready
// database must satisfy: unique ASCII citation keys, the required fields of
// each entry type, and four-digit years.
//
// Every detectable issue is reported in one pass. Only a document that cannot
// be parsed at all stops validation, and that is returned as an error rather
// than as an issue.
package validate

import (
	"fmt"
	"io"
	"strings"

	"github.com/sylvarum/bibsync/internal/bibtex"
)

// Report is the result of validating a bibliography.
type Report struct {
	Issues  []Issue `json:"issues"`
	Entries int     `json:"entries"`
}

// Passed reports whether no issues were found.
func (r *Report) Passed() bool {
	return len(r.Issues) == 0
}

// Validate applies every rule to entries. The duplicate-key issue, if any,
// comes first; per-entry issues follow in document order.
func Validate(entries []*bibtex.Entry) *Report {
	report := &Report{
		Issues:  []Issue{},
		Entries: len(entries),
	}

	if dups := duplicateKeys(entries); len(dups) > 0 {
		report.Issues = append(report.Issues, duplicateIssue(dups))
	}

	for _, e := range entries {
		report.Issues = append(report.Issues, checkEntry(e)...)
	}

	return report
}

// ValidateDocument parses r and validates the result.
func ValidateDocument(r io.Reader) (*Report, error) {
	entries, err := bibtex.Parse(r)
	if err != nil {
		return nil, err
	}
	return Validate(entries), nil
}

// ValidateFile parses the .bib file at path and validates it.
func ValidateFile(path string) (*Report, error) {
	entries, err := bibtex.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return Validate(entries), nil
}

// duplicateKeys returns every non-empty key that occurs more than once,
// in order of first occurrence.
func duplicateKeys(entries []*bibtex.Entry) []string {
	counts := make(map[string]int, len(entries))
	var order []string
	for _, e := range entries {
		key := strings.TrimSpace(e.Key)
		if key == "" {
			continue
		}
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}

	var dups []string
	for _, key := range order {
		if counts[key] > 1 {
			dups = append(dups, key)
		}
	}
	return dups
}

func checkEntry(e *bibtex.Entry) []Issue {
	key := strings.TrimSpace(e.Key)
	if key == "" {
		// Nothing else can be attributed to an entry without a key.
		return []Issue{emptyKeyIssue(e.Line)}
	}

	var issues []Issue

	if !ValidKey(key) {
		issues = append(issues, invalidKeyIssue(key, e.Line))
	}

	var missing []string
	for _, field := range RequiredFields(e.Type) {
		if value, ok := e.Get(field); !ok || strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		issues = append(issues, missingFieldsIssue(key, e.Type, missing, e.Line))
	}

	if year := strings.TrimSpace(e.Field("year")); year != "" && !ValidYear(year) {
		issues = append(issues, invalidYearIssue(key, year, e.Line))
	}

	return issues
}
