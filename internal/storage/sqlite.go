// Package storage keeps an ephemeral SQLite full-text index of the local
// bibliography. The .bib file is the source of truth; the index can be
// deleted and rebuilt at any time.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sylvarum/bibsync/internal/bibtex"
	_ "modernc.org/sqlite"
)

// Record is one indexed bibliography entry with BibTeX markup removed.
type Record struct {
	Key     string `json:"key"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Authors string `json:"authors,omitempty"`
	Venue   string `json:"venue,omitempty"`
	Year    string `json:"year,omitempty"`
	DOI     string `json:"doi,omitempty"`
	URL     string `json:"url,omitempty"`
}

// NewRecord flattens a parsed entry. The venue is the journal, booktitle or
// publisher, whichever is set first.
func NewRecord(e *bibtex.Entry) Record {
	clean := func(name string) string {
		return strings.TrimSpace(bibtex.StripBraces(e.Field(name)))
	}
	venue := clean("journal")
	if venue == "" {
		venue = clean("booktitle")
	}
	if venue == "" {
		venue = clean("publisher")
	}
	return Record{
		Key:     e.Key,
		Type:    e.Type,
		Title:   clean("title"),
		Authors: strings.Join(bibtex.Authors(clean("author")), "; "),
		Venue:   venue,
		Year:    clean("year"),
		DOI:     clean("doi"),
		URL:     clean("url"),
	}
}

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

const selectRecordFields = `citekey, type, title, authors, venue, year, doi, url`

// metaSourceMtime records the modification time of the indexed .bib file.
const metaSourceMtime = "source_mtime"

// OpenDB opens or creates a SQLite database at the given path, creating
// parent directories as needed.
func OpenDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			citekey TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			authors TEXT,
			venue TEXT,
			year TEXT,
			doi TEXT,
			url TEXT,
			position INTEGER NOT NULL
		);

		-- Standalone FTS table, rebuilt together with entries
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			citekey,
			title,
			authors,
			venue,
			year
		);

		CREATE TABLE IF NOT EXISTS meta (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromEntries replaces the index contents with entries. When a key
// occurs more than once only its first entry is indexed. Returns the number
// of indexed records.
func (d *DB) RebuildFromEntries(entries []*bibtex.Entry) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return 0, fmt.Errorf("clearing entries table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM entries_fts"); err != nil {
		return 0, fmt.Errorf("clearing entries_fts table: %w", err)
	}

	entryStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO entries (citekey, type, title, authors, venue, year, doi, url, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing entries insert: %w", err)
	}
	defer entryStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO entries_fts (citekey, title, authors, venue, year)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	count := 0
	for i, e := range entries {
		if strings.TrimSpace(e.Key) == "" {
			continue
		}
		r := NewRecord(e)

		res, err := entryStmt.Exec(r.Key, r.Type, r.Title, r.Authors, r.Venue, r.Year, r.DOI, r.URL, i)
		if err != nil {
			return 0, fmt.Errorf("inserting entry %s: %w", r.Key, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}

		if _, err := ftsStmt.Exec(r.Key, r.Title, r.Authors, r.Venue, r.Year); err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", r.Key, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing index: %w", err)
	}
	return count, nil
}

// RebuildFromFile parses the .bib file at path, rebuilds the index from it
// and records the file's modification time.
func (d *DB) RebuildFromFile(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	entries, err := bibtex.ParseFile(path)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	n, err := d.RebuildFromEntries(entries)
	if err != nil {
		return 0, err
	}
	if err := d.setMeta(metaSourceMtime, info.ModTime().UTC().Format(time.RFC3339Nano)); err != nil {
		return 0, fmt.Errorf("recording source time: %w", err)
	}
	return n, nil
}

// IsStale reports whether the .bib file at path changed after the index was
// last built from it. An index that was never built is stale.
func (d *DB) IsStale(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	recorded, err := d.meta(metaSourceMtime)
	if err != nil {
		return false, err
	}
	if recorded == "" {
		return true, nil
	}
	built, err := time.Parse(time.RFC3339Nano, recorded)
	if err != nil {
		return true, nil
	}
	return info.ModTime().UTC().After(built), nil
}

func (d *DB) setMeta(name, value string) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO meta (name, value) VALUES (?, ?)`, name, value)
	return err
}

func (d *DB) meta(name string) (string, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM meta WHERE name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// GetByKey retrieves an entry by citation key. Returns nil if not indexed.
func (d *DB) GetByKey(key string) (*Record, error) {
	row := d.db.QueryRow(`SELECT `+selectRecordFields+` FROM entries WHERE citekey = ?`, key)
	return scanRecord(row)
}

// Search performs a full-text search over keys, titles, authors, venues
// and years.
func (d *DB) Search(query string, limit int) ([]Record, error) {
	return d.match(prepareFTSQuery(query), limit)
}

// SearchField searches a single column: "author" or "title".
func (d *DB) SearchField(field, value string, limit int) ([]Record, error) {
	var column, q string
	switch field {
	case "author":
		column, q = "authors", prepareAuthorQuery(value)
	case "title":
		column, q = "title", prepareFTSQuery(value)
	default:
		return nil, fmt.Errorf("unknown search field: %s", field)
	}
	if q == "" {
		return nil, nil
	}
	return d.match(column+":"+q, limit)
}

func (d *DB) match(ftsQuery string, limit int) ([]Record, error) {
	if ftsQuery == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := d.db.Query(`
		SELECT `+selectRecordFields+`
		FROM entries
		WHERE citekey IN (SELECT citekey FROM entries_fts WHERE entries_fts MATCH ?)
		ORDER BY position
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListAll returns indexed entries in document order, optionally limited.
func (d *DB) ListAll(limit int) ([]Record, error) {
	query := `SELECT ` + selectRecordFields + ` FROM entries ORDER BY position`
	var args []any

	if limit > 0 {
		query += " LIMIT ?"
		args = []any{limit}
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Count returns the number of indexed entries.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var r Record
	var authors, venue, year, doi, url sql.NullString

	err := s.Scan(&r.Key, &r.Type, &r.Title, &authors, &venue, &year, &doi, &url)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	r.Authors = authors.String
	r.Venue = venue.String
	r.Year = year.String
	r.DOI = doi.String
	r.URL = url.String
	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if r != nil {
			records = append(records, *r)
		}
	}
	return records, rows.Err()
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// FTS5 uses double quotes for phrase matching
	if strings.ContainsAny(query, "\"*+-:(){}[]^~") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}

// prepareAuthorQuery adds a prefix wildcard to each name part so "Tim"
// matches "Timothy". Parts are ORed.
func prepareAuthorQuery(author string) string {
	parts := strings.Fields(author)
	if len(parts) == 0 {
		return ""
	}

	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		escaped := strings.ReplaceAll(part, "\"", "\"\"")
		terms = append(terms, "\""+escaped+"\"*")
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}
