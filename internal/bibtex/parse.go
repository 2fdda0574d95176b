package bibtex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// ErrMalformed is matched by every *ParseError.
var ErrMalformed = errors.New("malformed bibtex")

// ParseError reports a document that cannot be read as BibTeX.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bibtex line %d: %s", e.Line, e.Msg)
}

// Is implements errors.Is support.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformed
}

// monthMacros are the predefined @string abbreviations of standard BibTeX styles.
var monthMacros = map[string]string{
	"jan": "January", "feb": "February", "mar": "March", "apr": "April",
	"may": "May", "jun": "June", "jul": "July", "aug": "August",
	"sep": "September", "oct": "October", "nov": "November", "dec": "December",
}

// Parse reads every entry from r, in document order.
// @comment and @preamble blocks are skipped; @string macros are expanded.
// Text outside of entries is ignored, including an '@' in running text that
// does not open an entry. An '@' at the start of a line must open one.
func Parse(r io.Reader) ([]*Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading bibtex: %w", err)
	}

	p := &parser{
		src:    []rune(string(data)),
		line:   1,
		macros: make(map[string]string, len(monthMacros)),
	}
	for k, v := range monthMacros {
		p.macros[k] = v
	}
	return p.parse()
}

// ParseFile parses the .bib file at path.
func ParseFile(path string) ([]*Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

type parser struct {
	src    []rune
	pos    int
	line   int
	macros map[string]string
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) next() rune {
	r := p.src[p.pos]
	p.pos++
	if r == '\n' {
		p.line++
	}
	return r
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		p.next()
	}
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parse() ([]*Entry, error) {
	var entries []*Entry

	for {
		for !p.eof() && p.peek() != '@' {
			p.next()
		}
		if p.eof() {
			return entries, nil
		}

		start := p.line
		lineStart := p.atLineStart()
		resumePos, resumeLine := p.pos+1, p.line
		p.next() // '@'
		p.skipSpace()

		entryType := strings.ToLower(p.ident())
		p.skipSpace()
		if entryType == "" || p.eof() || (p.peek() != '{' && p.peek() != '(') {
			if !lineStart {
				// An '@' in free text, such as an email address.
				p.pos, p.line = resumePos, resumeLine
				continue
			}
			if entryType == "" {
				return nil, p.errorf("expected entry type after '@'")
			}
			return nil, p.errorf("expected '{' or '(' after @%s", entryType)
		}
		open := p.next()
		closer := '}'
		if open == '(' {
			closer = ')'
		}

		switch entryType {
		case "comment", "preamble":
			if err := p.skipBlock(open, closer, start); err != nil {
				return nil, err
			}
		case "string":
			if err := p.parseMacro(closer); err != nil {
				return nil, err
			}
		default:
			entry, err := p.parseEntry(entryType, closer, start)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}
}

// atLineStart reports whether only blanks precede the current position on
// its line.
func (p *parser) atLineStart() bool {
	for i := p.pos - 1; i >= 0; i-- {
		switch p.src[i] {
		case '\n':
			return true
		case ' ', '\t', '\r':
		default:
			return false
		}
	}
	return true
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() && isIdentRune(p.peek()) {
		p.next()
	}
	return string(p.src[start:p.pos])
}

func isIdentRune(r rune) bool {
	if unicode.IsSpace(r) {
		return false
	}
	return !strings.ContainsRune(`{}(),=#"%'`, r)
}

func (p *parser) skipBlock(open, closer rune, start int) error {
	depth := 1
	for !p.eof() {
		switch p.next() {
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
	return &ParseError{Line: start, Msg: "unterminated block"}
}

func (p *parser) parseMacro(closer rune) error {
	p.skipSpace()
	name := strings.ToLower(p.ident())
	if name == "" {
		return p.errorf("expected macro name in @string")
	}

	p.skipSpace()
	if p.eof() || p.peek() != '=' {
		return p.errorf("expected '=' after macro %q", name)
	}
	p.next()

	value, err := p.value()
	if err != nil {
		return err
	}

	p.skipSpace()
	if p.eof() || p.peek() != closer {
		return p.errorf("expected %q to close @string %q", closer, name)
	}
	p.next()

	p.macros[name] = value
	return nil
}

func (p *parser) parseEntry(entryType string, closer rune, start int) (*Entry, error) {
	keyStart := p.pos
	for !p.eof() && p.peek() != ',' && p.peek() != closer && p.peek() != '=' {
		p.next()
	}
	if p.eof() {
		return nil, &ParseError{Line: start, Msg: fmt.Sprintf("unterminated @%s entry", entryType)}
	}
	if p.peek() == '=' {
		return nil, p.errorf("@%s entry has no citation key", entryType)
	}

	entry := NewEntry(entryType, strings.TrimSpace(string(p.src[keyStart:p.pos])))
	entry.Line = start
	if p.next() == closer {
		return entry, nil
	}

	for {
		p.skipSpace()
		if p.eof() {
			return nil, &ParseError{Line: start, Msg: fmt.Sprintf("unterminated @%s entry %q", entryType, entry.Key)}
		}
		if p.peek() == closer {
			p.next()
			return entry, nil
		}

		name := p.ident()
		if name == "" {
			return nil, p.errorf("expected field name in entry %q, found %q", entry.Key, p.peek())
		}

		p.skipSpace()
		if p.eof() || p.peek() != '=' {
			return nil, p.errorf("expected '=' after field %q in entry %q", name, entry.Key)
		}
		p.next()

		value, err := p.value()
		if err != nil {
			return nil, err
		}
		entry.Set(name, value)

		p.skipSpace()
		if p.eof() {
			continue
		}
		switch p.peek() {
		case ',':
			p.next()
		case closer:
		default:
			return nil, p.errorf("expected ',' or %q after field %q in entry %q", closer, name, entry.Key)
		}
	}
}

// value reads a field value: braced or quoted strings, numbers and macro
// names, optionally concatenated with '#'.
func (p *parser) value() (string, error) {
	var b strings.Builder

	for {
		p.skipSpace()
		if p.eof() {
			return "", p.errorf("unexpected end of input in field value")
		}

		switch r := p.peek(); r {
		case '{':
			p.next()
			s, err := p.braced()
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case '"':
			p.next()
			s, err := p.quoted()
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		default:
			tok := p.ident()
			if tok == "" {
				return "", p.errorf("expected field value, found %q", r)
			}
			if expanded, ok := p.macros[strings.ToLower(tok)]; ok {
				b.WriteString(expanded)
			} else {
				b.WriteString(tok)
			}
		}

		p.skipSpace()
		if !p.eof() && p.peek() == '#' {
			p.next()
			continue
		}
		return strings.Join(strings.Fields(b.String()), " "), nil
	}
}

func (p *parser) braced() (string, error) {
	start := p.line
	depth := 1
	var b strings.Builder

	for !p.eof() {
		r := p.next()
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b.String(), nil
			}
		}
		b.WriteRune(r)
	}
	return "", &ParseError{Line: start, Msg: "unbalanced braces in field value"}
}

func (p *parser) quoted() (string, error) {
	start := p.line
	depth := 0
	var b strings.Builder

	for !p.eof() {
		r := p.next()
		switch {
		case r == '{':
			depth++
		case r == '}':
			depth--
			if depth < 0 {
				return "", p.errorf("unbalanced braces in quoted value")
			}
		case r == '"' && depth == 0:
			return b.String(), nil
		}
		b.WriteRune(r)
	}
	return "", &ParseError{Line: start, Msg: "unterminated quoted value"}
}
