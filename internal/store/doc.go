// Package store persists survey sessions, their captures, publish-state
// records, and key-value settings in SQLite.
//
// The Store is the only component that touches persistence. Multi-field
// mutations (capture insert plus session aggregate update, cascading session
// delete) run inside a single transaction so partial application is
// structurally impossible; callers either observe the whole mutation or none
// of it. Transaction aborts surface as ErrStorage-wrapped errors.
//
// Treat this package as the single source of truth for session and capture
// semantics; schema changes go through schema.sql and bump schemaVersion.
package store
