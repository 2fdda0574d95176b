package bibtex

import (
	"fmt"
	"strings"
)

// Format renders an entry as BibTeX text. Field values are written as stored,
// so LaTeX markup read by Parse round-trips unchanged.
func Format(e *Entry) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", e.Type, e.Key))
	for _, name := range e.Names() {
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", name, e.Field(name)))
	}
	b.WriteString("}\n")

	return b.String()
}

// FormatList renders multiple entries separated by blank lines.
func FormatList(entries []*Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, Format(e))
	}
	return strings.Join(parts, "\n")
}

// Authors splits a BibTeX author field on " and " into individual names.
func Authors(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(field, " and ") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// StripBraces removes the case-protection braces BibTeX exporters put around words.
func StripBraces(s string) string {
	return strings.NewReplacer("{", "", "}", "").Replace(s)
}
