// Package remote is the client boundary for the GitHub Contents API used as
// the published-content store.
//
// The client exposes identity, repository permission, and rate-limit probes
// plus path-addressed content reads and conditional writes. HTTP failures are
// classified into structured error variants (unauthorized, forbidden, not
// found, conflict, rate limited, transient) so callers never match on error
// text.
package remote
