// Package outcome accumulates per-item results of an archive run and maps
// the aggregate to a process exit status.
//
// Resolution and fetch failures are collected rather than raised so sibling
// work keeps running. A Collector is safe for concurrent use; Finalize
// freezes it into an immutable Report exactly once.
package outcome
