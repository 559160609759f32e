// Package history keeps an observational SQLite journal of finished bridge
// operations.
//
// Each run is written once, after the operation resolves. Nothing in the
// orchestration path reads the journal back; it exists for the CLI history
// view and for after-the-fact troubleshooting. The schema is versioned and a
// mismatch is reported rather than migrated: the journal can simply be
// deleted.
package history
