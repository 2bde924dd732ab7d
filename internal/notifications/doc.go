// Package notifications pushes batch outcomes to an ntfy topic.
//
// NewService returns a no-op when no topic is configured, so callers notify
// unconditionally. Delivery failures are returned to the caller, which logs
// them; a failed push never changes a batch result.
package notifications
