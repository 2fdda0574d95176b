// Package bibtex parses, indexes and writes BibTeX bibliography files.
package bibtex

import "strings"

// Entry is a single bibliographic record from a .bib file.
type Entry struct {
	// Type is the lowercased entry type (article, book, misc, ...).
	Type string
	// Key is the citation key as written, with surrounding whitespace removed.
	Key string
	// Line is the 1-based line on which the entry starts (0 if built in code).
	Line int

	fields map[string]string
	order  []string
}

// NewEntry creates an entry with no fields.
func NewEntry(entryType, key string) *Entry {
	return &Entry{
		Type:   strings.ToLower(entryType),
		Key:    key,
		fields: make(map[string]string),
	}
}

// Set stores a field value. Field names are case-insensitive.
func (e *Entry) Set(name, value string) {
	if e.fields == nil {
		e.fields = make(map[string]string)
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if _, exists := e.fields[name]; !exists {
		e.order = append(e.order, name)
	}
	e.fields[name] = value
}

// Get returns a field value and whether the field is present at all.
func (e *Entry) Get(name string) (string, bool) {
	v, ok := e.fields[strings.ToLower(name)]
	return v, ok
}

// Field returns a field value, or "" when absent.
func (e *Entry) Field(name string) string {
	v, _ := e.Get(name)
	return v
}

// Names returns field names in the order they were first set.
func (e *Entry) Names() []string {
	names := make([]string, len(e.order))
	copy(names, e.order)
	return names
}

// Len returns the number of fields.
func (e *Entry) Len() int {
	return len(e.fields)
}
