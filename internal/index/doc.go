// Package index maintains the Markdown index of archived files.
//
// The index is a free-form document whose final paragraph is a block of entry
// lines:
//
//	- [<label>](<target>): <credit>
//
// The label is the filename with `\` and `]` backslash-escaped, the target is
// the percent-encoded filename. Everything before the entry block is
// preserved byte-for-byte across merges. Entries are keyed by filename and
// rendered in byte-wise ascending order, so merging is idempotent.
package index
