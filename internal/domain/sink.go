package domain

import "context"

// AuditSink is what business services see of the audit pipeline. Calls are
// fire-and-forget: implementations must never surface a delivery failure to
// the caller, since a committed business operation cannot be rolled back
// because the audit pipe is down. Completeness is traded for availability.
type AuditSink interface {
	RecordCreate(ctx context.Context, resourceType ResourceType, resourceID string, attributes map[string]any)
	RecordUpdate(ctx context.Context, resourceType ResourceType, resourceID string, changes map[string]any)
	RecordDelete(ctx context.Context, resourceType ResourceType, resourceID string, attributes map[string]any)
	RecordError(ctx context.Context, resourceType ResourceType, resourceID string, action Action, errorMessage string)

	// Publish emits an arbitrary event; the Record helpers are built on it.
	Publish(ctx context.Context, event AuditEvent)
}
