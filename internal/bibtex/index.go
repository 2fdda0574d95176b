package bibtex

import (
	"os"
	"strings"
)

// Index looks up existing entries of a bibliography by key, DOI or title.
type Index struct {
	// Keys maps citation keys to true for existence check
	Keys map[string]bool
	// DOIs maps normalized DOI values to citation keys
	DOIs map[string]string
	// Titles maps normalized titles to citation keys
	Titles map[string]string
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		Keys:   make(map[string]bool),
		DOIs:   make(map[string]string),
		Titles: make(map[string]string),
	}
}

// BuildIndex indexes the given entries. Later duplicates do not replace the
// first key seen for a DOI or title.
func BuildIndex(entries []*Entry) *Index {
	idx := NewIndex()
	for _, e := range entries {
		idx.Keys[e.Key] = true
		if doi := normalizeDOI(e.Field("doi")); doi != "" {
			if _, exists := idx.DOIs[doi]; !exists {
				idx.DOIs[doi] = e.Key
			}
		}
		if title := normalizeTitle(e.Field("title")); title != "" {
			if _, exists := idx.Titles[title]; !exists {
				idx.Titles[title] = e.Key
			}
		}
	}
	return idx
}

// LoadIndex builds an index from an existing .bib file.
// Returns an empty index if the file doesn't exist.
func LoadIndex(path string) (*Index, error) {
	entries, err := ParseFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewIndex(), nil
		}
		return nil, err
	}
	return BuildIndex(entries), nil
}

// Match returns the key of an existing entry with the same DOI or, failing
// that, the same title. DOI is the primary match.
func (idx *Index) Match(doi, title string) (string, bool) {
	if doi = normalizeDOI(doi); doi != "" {
		if key, exists := idx.DOIs[doi]; exists {
			return key, true
		}
	}
	if title = normalizeTitle(title); title != "" {
		if key, exists := idx.Titles[title]; exists {
			return key, true
		}
	}
	return "", false
}

// normalizeDOI normalizes a DOI for comparison.
// Removes common prefixes like "https://doi.org/" and lowercases.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi.org/")
	doi = strings.TrimPrefix(doi, "DOI:")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(doi)
}

func normalizeTitle(title string) string {
	title = strings.ToLower(StripBraces(title))
	return strings.Join(strings.Fields(title), " ")
}
