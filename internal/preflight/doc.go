// Package preflight provides readiness checks for the filesystem paths and
// the query endpoint that archivist depends on.
//
// These checks run in two contexts:
//   - The archive pipeline calls RunAll before any network traffic. If a
//     check fails, the run stops with a generic error.
//   - The CLI "archivist status" command adds CheckCommonsAPI and renders
//     every result as a table.
package preflight
