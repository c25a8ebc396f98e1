// Package publish drives one session's upload job against the remote content
// store.
//
// The Coordinator owns the job state machine: validate credentials and quota,
// snapshot the unpublished captures into a FIFO queue, drain it one item at a
// time, then finish by regenerating the session documents and folding the
// session into the shared coverage index. Pause is observed only between
// items; cancel waits for the in-flight attempt to settle before touching
// session state. Durable progress lives in the store's publish-state record,
// written before the first upload and after every item, so a restarted
// process resumes without re-uploading completed items.
//
// Uploads are never parallelized. Exactly one item is in doubt at any time,
// which keeps the per-item idempotency probe race-free and bounds exposure to
// the remote rate limit.
package publish
