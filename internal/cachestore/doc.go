// Package cachestore persists enriched game records and the global tag
// dictionary in a SQLite database.
//
// Records are namespaced by platform and keyed by a normalized identifier (a
// catalog code such as RJ01234567, or a folded title for title-only items).
// Reads and writes used by the reconciliation pipeline never surface storage
// faults: Get reports a miss and Put reports false, and the fault is logged.
// Administrative calls (List, Search, Purge, Export) return errors so the CLI
// can report them.
//
// The schema lives in schema.sql. Changes are appended to the migrations list
// as well, so older databases upgrade in place on open; a database from a
// newer build is rejected with ErrSchemaMismatch.
//
// Maintenance commands that rewrite many rows take an exclusive flock on the
// database lock file (see Lock) so they cannot interleave with a running batch.
package cachestore
