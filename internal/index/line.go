package index

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrParse reports an entry line that does not follow the entry grammar.
var ErrParse = errors.New("index: malformed entry")

// ErrInvalidEntry reports an entry that cannot be written as a single line.
var ErrInvalidEntry = errors.New("index: invalid entry")

const linePrefix = "- ["

// Entry is one archived file and its attribution.
type Entry struct {
	Filename string
	Credit   string
}

// EscapeLabel escapes backslash and closing bracket so the filename can sit
// inside a link label.
func EscapeLabel(name string) string {
	if !strings.ContainsAny(name, `\]`) {
		return name
	}
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '\\' || c == ']' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// UnescapeLabel reverses EscapeLabel. Any escape other than `\\` or `\]` is
// rejected.
func UnescapeLabel(label string) (string, error) {
	if !strings.Contains(label, `\`) {
		return label, nil
	}
	var b strings.Builder
	b.Grow(len(label))
	for i := 0; i < len(label); i++ {
		c := label[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(label) {
			return "", fmt.Errorf("%w: dangling escape", ErrParse)
		}
		next := label[i+1]
		if next != '\\' && next != ']' {
			return "", fmt.Errorf("%w: invalid escape %q", ErrParse, `\`+string(next))
		}
		b.WriteByte(next)
		i++
	}
	return b.String(), nil
}

// EscapeTarget percent-encodes a filename for use as a relative link,
// leaving unreserved characters, '/' and ',' as they are.
func EscapeTarget(name string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if keepInTarget(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func keepInTarget(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '~', '/', ',':
		return true
	}
	return false
}

// FormatLine renders an entry line. Line breaks in the credit are folded to
// spaces so the entry stays on one line.
func FormatLine(e Entry) string {
	credit := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(e.Credit)
	return linePrefix + EscapeLabel(e.Filename) + "](" + EscapeTarget(e.Filename) + "): " + credit
}

// Validate reports whether e can be rendered and parsed back unchanged. The
// filename must be non-empty and free of line breaks.
func (e Entry) Validate() error {
	switch {
	case e.Filename == "":
		return fmt.Errorf("%w: empty filename", ErrInvalidEntry)
	case strings.ContainsAny(e.Filename, "\r\n"):
		return fmt.Errorf("%w: line break in filename %q", ErrInvalidEntry, e.Filename)
	}
	return nil
}

// IsEntryLine reports whether line looks like an entry line. It does not
// validate the rest of the grammar.
func IsEntryLine(line string) bool {
	return strings.HasPrefix(line, linePrefix)
}

// ParseLine parses an entry line. The filename is taken from the label.
func ParseLine(line string) (Entry, error) {
	if !IsEntryLine(line) {
		return Entry{}, fmt.Errorf("%w: missing %q prefix", ErrParse, linePrefix)
	}
	rest := line[len(linePrefix):]

	end := labelEnd(rest)
	if end < 0 {
		return Entry{}, fmt.Errorf("%w: unterminated label", ErrParse)
	}
	name, err := UnescapeLabel(rest[:end])
	if err != nil {
		return Entry{}, err
	}
	if name == "" {
		return Entry{}, fmt.Errorf("%w: empty filename", ErrParse)
	}
	rest = rest[end+1:]

	if !strings.HasPrefix(rest, "(") {
		return Entry{}, fmt.Errorf("%w: missing link target", ErrParse)
	}
	closing := strings.IndexByte(rest, ')')
	if closing < 0 {
		return Entry{}, fmt.Errorf("%w: unterminated link target", ErrParse)
	}
	target := rest[1:closing]
	if target == "" {
		return Entry{}, fmt.Errorf("%w: empty link target", ErrParse)
	}
	if _, err := url.PathUnescape(target); err != nil {
		return Entry{}, fmt.Errorf("%w: link target: %v", ErrParse, err)
	}
	rest = rest[closing+1:]

	// An empty credit may have lost its trailing space to an editor.
	if rest == ":" {
		return Entry{Filename: name}, nil
	}
	if !strings.HasPrefix(rest, ": ") {
		return Entry{}, fmt.Errorf("%w: missing credit separator", ErrParse)
	}
	return Entry{Filename: name, Credit: rest[2:]}, nil
}

// labelEnd returns the index of the first unescaped ']' in s, or -1.
func labelEnd(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case ']':
			return i
		}
	}
	return -1
}
