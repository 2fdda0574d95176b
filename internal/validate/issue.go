package validate

import (
	"fmt"
	"strings"
)

// Kind classifies a validation issue.
type Kind int

const (
	DuplicateKey Kind = iota
	EmptyKey
	InvalidKeyChars
	MissingFields
	InvalidYear
)

var kindNames = map[Kind]string{
	DuplicateKey:    "duplicate_key",
	EmptyKey:        "empty_key",
	InvalidKeyChars: "invalid_key_chars",
	MissingFields:   "missing_fields",
	InvalidYear:     "invalid_year",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Issue is a single data-quality problem found in a bibliography.
type Issue struct {
	Kind Kind `json:"type"`
	// Key is the offending citation key. Empty for EmptyKey and DuplicateKey.
	Key string `json:"key,omitempty"`
	// Keys lists every duplicated key (DuplicateKey only).
	Keys []string `json:"keys,omitempty"`
	// Fields lists the missing required fields (MissingFields only).
	Fields []string `json:"fields,omitempty"`
	// Line is where the entry starts in the source file, if known.
	Line   int    `json:"line,omitempty"`
	Detail string `json:"detail"`
}

func (i Issue) String() string {
	return i.Detail
}

func duplicateIssue(keys []string) Issue {
	return Issue{
		Kind:   DuplicateKey,
		Keys:   keys,
		Detail: fmt.Sprintf("Duplicate citekeys: %s", strings.Join(keys, ", ")),
	}
}

func emptyKeyIssue(line int) Issue {
	detail := "Entry without citekey"
	if line > 0 {
		detail = fmt.Sprintf("Entry without citekey (line %d)", line)
	}
	return Issue{Kind: EmptyKey, Line: line, Detail: detail}
}

func invalidKeyIssue(key string, line int) Issue {
	detail := fmt.Sprintf("Non-ASCII or invalid chars in key: %s", key)
	if suggestion := suggestKey(key); suggestion != "" {
		detail += fmt.Sprintf(" (try %s)", suggestion)
	}
	return Issue{Kind: InvalidKeyChars, Key: key, Line: line, Detail: detail}
}

func missingFieldsIssue(key, entryType string, fields []string, line int) Issue {
	return Issue{
		Kind:   MissingFields,
		Key:    key,
		Fields: fields,
		Line:   line,
		Detail: fmt.Sprintf("%s: missing fields for %s: %s", key, entryType, strings.Join(fields, ", ")),
	}
}

func invalidYearIssue(key, year string, line int) Issue {
	return Issue{
		Kind:   InvalidYear,
		Key:    key,
		Line:   line,
		Detail: fmt.Sprintf("%s: invalid year `%s` (expected YYYY)", key, year),
	}
}
