// Package notifications is the outward progress surface for publish jobs.
//
// The Service interface carries started/progress/completed/error events.
// Consumers that want push delivery configure an ntfy topic; otherwise a noop
// implementation is returned. The CLI supplies its own implementation to
// print progress inline, and Multi fans events out to several sinks.
package notifications
