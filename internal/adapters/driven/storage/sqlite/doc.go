// Package sqlite is the default contract store, built on the pure-Go
// modernc.org/sqlite driver. Store implements driven.DocumentStore and
// driven.ClauseSearcher.
//
// Embeddings are little-endian float32 BLOBs. Metadata, including the
// document status, is a JSON column. Migrations under migrations/ are
// applied in order at open and recorded in schema_migrations.
//
// The database lives at <data dir>/contracts.db and runs in WAL mode with
// the connection pool capped by storage.max_connections.
package sqlite
