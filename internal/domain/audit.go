package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/calima-dev/audixa/internal/infrastructure/validate"
	"github.com/google/uuid"
)

type ResourceType string

const (
	ResourceClient  ResourceType = "client"
	ResourceInvoice ResourceType = "invoice"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionError  Action = "error"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// RoutingKeyPrefix is the topic namespace every audit event is published under.
const RoutingKeyPrefix = "audit"

// AuditEvent is the wire form of a single state-changing (or failed) operation
// on a business entity. Publishers emit it, the consumer turns it into an
// AuditLog. Timestamp is set by the publisher and is independent of the time
// the record is eventually persisted.
type AuditEvent struct {
	ResourceType ResourceType   `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Action       Action         `json:"action"`
	ChangesMade  map[string]any `json:"changes_made,omitempty"`
	Status       Status         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// RoutingKey returns the topic key the event is published under,
// e.g. "audit.invoice.update".
func (e AuditEvent) RoutingKey() string {
	return fmt.Sprintf("%s.%s.%s", RoutingKeyPrefix, e.ResourceType, e.Action)
}

var (
	resourceTypeField = validate.Field("resource_type",
		validate.Required(),
		validate.OneOf(string(ResourceClient), string(ResourceInvoice)),
	)
	actionField = validate.Field("action",
		validate.Required(),
		validate.OneOf(
			string(ActionCreate), string(ActionRead), string(ActionUpdate),
			string(ActionDelete), string(ActionError),
		),
	)
	statusField = validate.Field("status",
		validate.Required(),
		validate.OneOf(string(StatusSuccess), string(StatusFailed)),
	)
	resourceIDField = validate.Field("resource_id", validate.Required())
)

// Validate checks the event against the closed enum sets and required fields.
// It returns one message per failing field, empty when the event is valid. The
// enums are a hard schema boundary: an event failing here is malformed, not
// merely unusual.
func (e AuditEvent) Validate() []string {
	var errs []string

	if err := resourceTypeField(string(e.ResourceType)); err != nil {
		errs = append(errs, err.Error())
	}
	if err := resourceIDField(e.ResourceID); err != nil {
		errs = append(errs, err.Error())
	}
	if err := actionField(string(e.Action)); err != nil {
		errs = append(errs, err.Error())
	}
	if err := statusField(string(e.Status)); err != nil {
		errs = append(errs, err.Error())
	}

	return errs
}

// AuditLog is the persisted form of an AuditEvent. Records are append-only:
// nothing in the system updates or deletes them. CreatedAt is assigned by the
// store at persistence time when unset and reflects persistence order, not
// emission order.
type AuditLog struct {
	ID           string         `bson:"_id" json:"id"`
	ResourceType ResourceType   `bson:"resource_type" json:"resource_type"`
	ResourceID   string         `bson:"resource_id" json:"resource_id"`
	Action       Action         `bson:"action" json:"action"`
	ChangesMade  map[string]any `bson:"changes_made,omitempty" json:"changes_made,omitempty"`
	Status       Status         `bson:"status" json:"status"`
	ErrorMessage string         `bson:"error_message,omitempty" json:"error_message,omitempty"`
	Timestamp    time.Time      `bson:"timestamp,omitempty" json:"timestamp,omitempty"`
	CreatedAt    time.Time      `bson:"created_at" json:"created_at"`
}

// NewAuditLog builds the record for a validated event. CreatedAt is left zero
// so the repository stamps it at write time.
func NewAuditLog(e AuditEvent) *AuditLog {
	return &AuditLog{
		ID:           uuid.NewString(),
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Action:       e.Action,
		ChangesMade:  e.ChangesMade,
		Status:       e.Status,
		ErrorMessage: e.ErrorMessage,
		Timestamp:    e.Timestamp,
	}
}

// AuditLogFilter narrows List queries. Zero values mean "no filter". Start and
// End are inclusive bounds on CreatedAt.
type AuditLogFilter struct {
	ResourceType ResourceType
	ResourceID   string
	Status       Status
	Start        *time.Time
	End          *time.Time
}

type AuditLogRepository interface {
	// Insert appends one record, stamping CreatedAt when it is unset. An
	// already-set CreatedAt is never overwritten.
	Insert(ctx context.Context, log *AuditLog) error
	// List returns at most limit records matching the filter, newest first,
	// along with the unbounded total match count.
	List(ctx context.Context, filter AuditLogFilter, limit int64) ([]AuditLog, int64, error)
	// FindByResourceID returns every record for the resource, newest first.
	// An empty resourceType matches across types.
	FindByResourceID(ctx context.Context, resourceID string, resourceType ResourceType) ([]AuditLog, error)
	EnsureIndexes(ctx context.Context) error
}
