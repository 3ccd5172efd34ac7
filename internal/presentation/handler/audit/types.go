package audit

import (
	"time"

	"github.com/calima-dev/audixa/internal/domain"
)

// listResponse is the List envelope. TotalAuditLogs counts every match, not
// just the capped page that data carries.
type listResponse struct {
	Success        bool              `json:"success"`
	Data           []domain.AuditLog `json:"data"`
	TotalAuditLogs int64             `json:"total_audit_logs"`
}

type showResponse struct {
	Success        bool              `json:"success"`
	Data           []domain.AuditLog `json:"data"`
	TotalAuditLogs int               `json:"total_audit_logs"`
}

type createRequest struct {
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Action       string         `json:"action"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
	ChangesMade  map[string]any `json:"changes_made"`
}

type createResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    *domain.AuditLog `json:"data"`
}

// estadisticas keeps the aggregation field names of the upstream billing
// platform; dashboards consume them as-is.
type estadisticas struct {
	Total        int                   `json:"total"`
	PorAccion    map[domain.Action]int `json:"por_accion"`
	PorEstado    map[domain.Status]int `json:"por_estado"`
	PrimerEvento time.Time             `json:"primer_evento"`
	UltimoEvento time.Time             `json:"ultimo_evento"`
}

type aggregationResponse struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
}
