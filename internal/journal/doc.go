// Package journal records archive runs in a local SQLite database so the
// operator can review what earlier runs archived and why items failed.
//
// The schema is embedded and versioned through a schema_version table. A
// database created by a different schema version is rejected with
// ErrSchemaMismatch rather than migrated.
package journal
