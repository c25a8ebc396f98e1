// Package coverage maintains the shared remote aggregate index summarizing
// all published sessions' routes and statistics.
//
// The merger runs after a session finishes publishing. It is deliberately
// forgiving: a fetch failure is treated as an empty index, an existing entry
// for the session is replaced so re-merges are safe, and any failure is
// reported to the caller to log and swallow. Publish success never depends on
// the index.
package coverage
