// Package main hosts the archivist CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the structured
// logger, and hands each invocation to the internal packages: the archive
// pipeline for source commands, the run journal for history, and preflight
// for status checks. Source commands exit with the run's outcome status so
// scripts can tell query, fetch and index failures apart.
//
// Keep this package lean: new behaviour belongs in internal packages first
// and is surfaced here through commands or flags.
package main
