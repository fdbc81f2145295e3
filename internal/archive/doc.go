// Package archive runs the archive-and-index pipeline for one invocation:
// normalize identifiers, resolve them through the Commons query API, fetch
// each resolved file into the destination directory, merge the archived
// entries into the index and classify the run.
//
// Resolution and fetching overlap: a descriptor is handed to the fetcher as
// soon as its batch resolves. All outbound HTTP shares one fetch.Gate. The
// index is written once, after every fetch has finished.
package archive
