package index

import (
	"fmt"
	"slices"
	"strings"
)

// Document is a parsed index. Prefix holds every byte that precedes the
// entry block, including the blank line separating it.
type Document struct {
	Prefix   string
	Entries  map[string]string
	HasBlock bool
}

// Parse locates and parses the entry block of text. The block is the last
// paragraph when every one of its lines is an entry line; otherwise the
// document has no block yet and new entries are appended as a fresh
// paragraph. A malformed line inside the block fails with ErrParse.
func Parse(text string) (*Document, error) {
	doc := &Document{Entries: make(map[string]string)}
	body := strings.TrimRight(text, "\n")
	if body == "" {
		return doc, nil
	}

	prefix, last := "", body
	if cut := strings.LastIndex(body, "\n\n"); cut >= 0 {
		prefix, last = body[:cut+2], body[cut+2:]
	}

	lines := strings.Split(last, "\n")
	if !allEntryLines(lines) {
		doc.Prefix = body + "\n\n"
		return doc, nil
	}

	for i, line := range lines {
		entry, err := ParseLine(line)
		if err != nil {
			lineNo := strings.Count(prefix, "\n") + i + 1
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		doc.Entries[entry.Filename] = entry.Credit
	}
	doc.Prefix = prefix
	doc.HasBlock = true
	return doc, nil
}

func allEntryLines(lines []string) bool {
	for _, line := range lines {
		if !IsEntryLine(line) {
			return false
		}
	}
	return true
}

// Merge inserts entries, replacing the credit of any existing filename.
// When any entry fails Validate nothing is merged.
func (d *Document) Merge(entries []Entry) error {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	if d.Entries == nil {
		d.Entries = make(map[string]string, len(entries))
	}
	for _, e := range entries {
		d.Entries[e.Filename] = e.Credit
	}
	return nil
}

// List returns the entries in render order.
func (d *Document) List() []Entry {
	names := make([]string, 0, len(d.Entries))
	for name := range d.Entries {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]Entry, 0, len(names))
	for _, name := range names {
		out = append(out, Entry{Filename: name, Credit: d.Entries[name]})
	}
	return out
}

// Render returns the document text: the preserved prefix followed by the
// sorted entry block, ending in exactly one newline.
func (d *Document) Render() string {
	if len(d.Entries) == 0 {
		body := strings.TrimRight(d.Prefix, "\n")
		if body == "" {
			return ""
		}
		return body + "\n"
	}
	var b strings.Builder
	b.WriteString(d.Prefix)
	for _, e := range d.List() {
		b.WriteString(FormatLine(e))
		b.WriteByte('\n')
	}
	return b.String()
}
