package validate

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	asciiKeyRegex = regexp.MustCompile(`^[A-Za-z0-9:_-]+$`)
	yearRegex     = regexp.MustCompile(`^[0-9]{4}$`)
)

// requiredFields is checked in order; the first matching type wins.
var requiredFields = []struct {
	entryType string
	fields    []string
}{
	{"article", []string{"title", "author", "journal", "year"}},
	{"inproceedings", []string{"title", "author", "booktitle", "year"}},
	{"book", []string{"title", "year"}},
	{"incollection", []string{"title", "booktitle", "year"}},
	{"phdthesis", []string{"title", "author", "school", "year"}},
	{"mastersthesis", []string{"title", "author", "school", "year"}},
	{"techreport", []string{"title", "institution", "year"}},
	{"misc", []string{"title"}},
}

// defaultRequired applies to entry types missing from requiredFields.
var defaultRequired = []string{"title", "year"}

// RequiredFields returns the fields an entry of the given type must carry.
func RequiredFields(entryType string) []string {
	entryType = strings.ToLower(entryType)
	for _, rule := range requiredFields {
		if rule.entryType == entryType {
			return rule.fields
		}
	}
	return defaultRequired
}

// ValidKey reports whether key is a well-formed citation key.
func ValidKey(key string) bool {
	return asciiKeyRegex.MatchString(key)
}

// ValidYear reports whether year is exactly four decimal digits.
func ValidYear(year string) bool {
	return yearRegex.MatchString(year)
}

// suggestKey folds accents and joins words with underscores. Returns "" when
// the result is still not a valid key.
func suggestKey(key string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, key)
	if err != nil {
		return ""
	}
	folded = strings.Join(strings.Fields(folded), "_")
	if folded == key || !ValidKey(folded) {
		return ""
	}
	return folded
}
