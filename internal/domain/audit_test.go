package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditEventRoutingKey(t *testing.T) {
	event := AuditEvent{
		ResourceType: ResourceInvoice,
		ResourceID:   "inv-42",
		Action:       ActionUpdate,
		Status:       StatusSuccess,
	}

	assert.Equal(t, "audit.invoice.update", event.RoutingKey())
}

func TestAuditEventValidate(t *testing.T) {
	valid := AuditEvent{
		ResourceType: ResourceClient,
		ResourceID:   "c-1",
		Action:       ActionCreate,
		Status:       StatusSuccess,
	}

	tests := []struct {
		name    string
		mutate  func(e *AuditEvent)
		wantErr string
	}{
		{
			name:   "valid event passes",
			mutate: func(e *AuditEvent) {},
		},
		{
			name:    "unknown resource type",
			mutate:  func(e *AuditEvent) { e.ResourceType = "supplier" },
			wantErr: "resource_type",
		},
		{
			name:    "missing resource type",
			mutate:  func(e *AuditEvent) { e.ResourceType = "" },
			wantErr: "resource_type",
		},
		{
			name:    "missing resource id",
			mutate:  func(e *AuditEvent) { e.ResourceID = "" },
			wantErr: "resource_id",
		},
		{
			name:    "unknown action",
			mutate:  func(e *AuditEvent) { e.Action = "archive" },
			wantErr: "action",
		},
		{
			name:    "unknown status",
			mutate:  func(e *AuditEvent) { e.Status = "pending" },
			wantErr: "status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := valid
			tt.mutate(&event)

			errs := event.Validate()
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}

			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestAuditEventValidateCollectsAllFieldErrors(t *testing.T) {
	event := AuditEvent{
		ResourceType: "supplier",
		Action:       "archive",
		Status:       "pending",
	}

	errs := event.Validate()
	assert.Len(t, errs, 4)
}

func TestNewAuditLog(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	event := AuditEvent{
		ResourceType: ResourceClient,
		ResourceID:   "c-9",
		Action:       ActionDelete,
		ChangesMade:  map[string]any{"name": "Acme"},
		Status:       StatusSuccess,
		Timestamp:    ts,
	}

	log := NewAuditLog(event)

	assert.NotEmpty(t, log.ID)
	assert.Equal(t, ResourceClient, log.ResourceType)
	assert.Equal(t, "c-9", log.ResourceID)
	assert.Equal(t, ActionDelete, log.Action)
	assert.Equal(t, StatusSuccess, log.Status)
	assert.Equal(t, ts, log.Timestamp)
	// CreatedAt belongs to the store, not the event
	assert.True(t, log.CreatedAt.IsZero())

	other := NewAuditLog(event)
	assert.NotEqual(t, log.ID, other.ID)
}

func TestBuildAuditStats(t *testing.T) {
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	logs := []AuditLog{
		{Action: ActionCreate, Status: StatusSuccess, CreatedAt: base},
		{Action: ActionUpdate, Status: StatusSuccess, CreatedAt: base.Add(time.Minute)},
		{Action: ActionUpdate, Status: StatusFailed, CreatedAt: base.Add(2 * time.Minute)},
		{Action: ActionError, Status: StatusFailed, CreatedAt: base.Add(3 * time.Minute)},
	}

	stats := BuildAuditStats(logs)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, map[Action]int{ActionCreate: 1, ActionUpdate: 2, ActionError: 1}, stats.ByAction)
	assert.Equal(t, map[Status]int{StatusSuccess: 2, StatusFailed: 2}, stats.ByStatus)
	assert.Equal(t, base, stats.FirstEvent)
	assert.Equal(t, base.Add(3*time.Minute), stats.LastEvent)
}

func TestBuildAuditStatsEmpty(t *testing.T) {
	stats := BuildAuditStats(nil)

	assert.Equal(t, 0, stats.Total)
	assert.Empty(t, stats.ByAction)
	assert.Empty(t, stats.ByStatus)
	assert.True(t, stats.FirstEvent.IsZero())
	assert.True(t, stats.LastEvent.IsZero())
}
