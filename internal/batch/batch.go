// Package batch splits source identifiers into query-sized groups.
package batch

import (
	"iter"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Batches yields consecutive groups of at most size identifiers in input order.
// A non-positive size is treated as 1. The yielded slices share the backing
// array of ids and must not be modified.
func Batches(ids []string, size int) iter.Seq[[]string] {
	if size <= 0 {
		size = 1
	}
	return func(yield func([]string) bool) {
		for start := 0; start < len(ids); start += size {
			end := min(start+size, len(ids))
			if !yield(ids[start:end:end]) {
				return
			}
		}
	}
}

// Count returns how many batches Batches will yield.
func Count(n, size int) int {
	if size <= 0 {
		size = 1
	}
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Dedupe drops repeated identifiers, keeping the first occurrence.
func Dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Normalize trims each identifier, converts it to NFC and drops empty and
// repeated values, keeping the first occurrence.
func Normalize(ids []string) []string {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		id = norm.NFC.String(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		cleaned = append(cleaned, id)
	}
	return Dedupe(cleaned)
}
