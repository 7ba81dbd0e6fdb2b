// Package state persists conversion history in SQLite.
//
// Each run gets a row in runs; each book keeps one row per (primary path,
// mode) that is replaced whenever the book is processed again, so the table
// answers "when was this book last checked and what did it contain". The
// engine never reads this data; it only feeds the history command.
//
// The schema is versioned with a single schema_version row. A database written
// by a different schema version is refused with ErrSchemaMismatch rather than
// migrated; delete history.db to start over.
package state
