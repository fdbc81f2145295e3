// Package fetch downloads resolved content into the archive directory.
//
// All outbound HTTP of a run passes through a Gate, which bounds the number
// of in-flight requests globally and per host. Fetcher streams each response
// into a temp file and renames it into place, so a failed download never
// leaves a partial file behind. Transient failures are retried with capped
// exponential backoff.
package fetch
