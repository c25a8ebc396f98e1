// Package recovery demotes sessions left in an active state by a crashed
// process back to a safe resumable state.
//
// The scanner runs once at startup, before any new session may be created or
// published. Sessions found in recording or publishing status can only exist
// if the process died mid-operation; each is demoted to paused and annotated
// with sequence-gap information so the caller can decide whether to resume or
// discard. The scanner never assumes sensor or network state from before the
// crash is still valid.
package recovery
