// Package notifications pushes archive run summaries to an ntfy topic.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers can notify unconditionally. Delivery failures are returned to the
// caller, which logs them without affecting the run outcome.
package notifications
