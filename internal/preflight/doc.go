// Package preflight runs local environment checks before recording or
// publishing: data directory writable, free disk space above the configured
// floor. Remote credential and quota validation happens in the publish
// coordinator, not here.
package preflight
