// Package migration applies versioned SQL files to the scheduling store.
//
// Files are named {version}_{description}.sql and are read from an fs.FS,
// normally the set embedded in the sqlite package. Each file runs inside a
// single transaction and is recorded in schema_migrations with its
// checksum; versions must form a continuous sequence.
package migration
