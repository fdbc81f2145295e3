// Package logs reads the JSON log file archivist writes next to its console
// output.
//
// Records are filtered by run identifier prefix and minimum level, so one
// archive run can be inspected after the fact or followed while it happens.
// Reading keeps memory bounded to the number of records requested.
package logs
