package audit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/calima-dev/audixa/internal/domain"
	"github.com/calima-dev/audixa/internal/infrastructure/json"
	"github.com/calima-dev/audixa/internal/infrastructure/logging"
	"github.com/go-chi/chi/v5"
)

// listLimit caps List responses; the total in the envelope stays unbounded.
const listLimit = 100

type Handler struct {
	repo   domain.AuditLogRepository
	logger logging.Logger
}

func NewHandler(repo domain.AuditLogRepository, logger logging.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected ISO-8601", value)
}

// parseFilter builds the repository filter from query parameters. Enum-valued
// filters and dates are rejected outright rather than coerced into an empty
// result set.
func parseFilter(r *http.Request) (domain.AuditLogFilter, error) {
	q := r.URL.Query()
	filter := domain.AuditLogFilter{
		ResourceID: q.Get("resource_id"),
	}

	if rt := q.Get("resource_type"); rt != "" {
		if rt != string(domain.ResourceClient) && rt != string(domain.ResourceInvoice) {
			return filter, fmt.Errorf("unknown resource_type %q", rt)
		}
		filter.ResourceType = domain.ResourceType(rt)
	}

	if status := q.Get("status"); status != "" {
		if status != string(domain.StatusSuccess) && status != string(domain.StatusFailed) {
			return filter, fmt.Errorf("unknown status %q", status)
		}
		filter.Status = domain.Status(status)
	}

	if start := q.Get("start_date"); start != "" {
		t, err := parseDate(start)
		if err != nil {
			return filter, fmt.Errorf("start_date: %w", err)
		}
		filter.Start = &t
	}

	if end := q.Get("end_date"); end != "" {
		t, err := parseDate(end)
		if err != nil {
			return filter, fmt.Errorf("end_date: %w", err)
		}
		filter.End = &t
	}

	return filter, nil
}

// ListHandler godoc
// @Summary      List audit logs
// @Description  Returns audit logs matching the given filters, newest first, capped at 100 records
// @Tags         audit
// @Produce      json
// @Param        resource_type query string false "Resource type (client or invoice)"
// @Param        resource_id   query string false "Resource identifier"
// @Param        status        query string false "Event status (success or failed)"
// @Param        start_date    query string false "Inclusive lower bound on created_at (ISO-8601)"
// @Param        end_date      query string false "Inclusive upper bound on created_at (ISO-8601)"
// @Success      200 {object} listResponse
// @Failure      400 {object} json.ErrorResponse "Malformed filter or date"
// @Router       /audit [get]
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		json.WriteBadRequestError(w, err.Error())
		return
	}

	logs, total, err := h.repo.List(r.Context(), filter, listLimit)
	if err != nil {
		h.logger.Error(logging.MongoDB, logging.Persistence, "failed to list audit logs", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w)
		return
	}

	json.Write(w, http.StatusOK, listResponse{
		Success:        true,
		Data:           logs,
		TotalAuditLogs: total,
	})
}

// ShowHandler godoc
// @Summary      Audit history of one resource
// @Description  Returns every audit log for the given resource id, newest first, optionally narrowed by resource_type
// @Tags         audit
// @Produce      json
// @Param        resourceId    path  string true  "Resource identifier"
// @Param        resource_type query string false "Resource type (client or invoice)"
// @Success      200 {object} showResponse
// @Failure      404 {object} json.ErrorResponse "No logs recorded for the resource"
// @Router       /audit/{resourceId} [get]
func (h *Handler) ShowHandler(w http.ResponseWriter, r *http.Request) {
	resourceID := chi.URLParam(r, "resourceId")

	var resourceType domain.ResourceType
	if rt := r.URL.Query().Get("resource_type"); rt != "" {
		if rt != string(domain.ResourceClient) && rt != string(domain.ResourceInvoice) {
			json.WriteBadRequestError(w, fmt.Sprintf("unknown resource_type %q", rt))
			return
		}
		resourceType = domain.ResourceType(rt)
	}

	logs, err := h.repo.FindByResourceID(r.Context(), resourceID, resourceType)
	if err != nil {
		h.logger.Error(logging.MongoDB, logging.Persistence, "failed to fetch audit logs", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
			logging.ResourceID:   resourceID,
		})
		json.WriteInternalError(w)
		return
	}

	if len(logs) == 0 {
		json.WriteNotFoundError(w, notFoundMessage(string(resourceType), resourceID))
		return
	}

	json.Write(w, http.StatusOK, showResponse{
		Success:        true,
		Data:           logs,
		TotalAuditLogs: len(logs),
	})
}

// ShowInvoiceHandler godoc
// @Summary      Aggregated audit history of an invoice
// @Tags         audit
// @Produce      json
// @Param        id path string true "Invoice identifier"
// @Success      200 {object} aggregationResponse
// @Failure      404 {object} json.ErrorResponse
// @Router       /audit/invoices/{id} [get]
func (h *Handler) ShowInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	h.showAggregated(w, r, domain.ResourceInvoice, "invoice_id")
}

// ShowClientHandler godoc
// @Summary      Aggregated audit history of a client
// @Tags         audit
// @Produce      json
// @Param        id path string true "Client identifier"
// @Success      200 {object} aggregationResponse
// @Failure      404 {object} json.ErrorResponse
// @Router       /audit/clients/{id} [get]
func (h *Handler) ShowClientHandler(w http.ResponseWriter, r *http.Request) {
	h.showAggregated(w, r, domain.ResourceClient, "client_id")
}

func (h *Handler) showAggregated(w http.ResponseWriter, r *http.Request, resourceType domain.ResourceType, idField string) {
	id := chi.URLParam(r, "id")

	logs, err := h.repo.FindByResourceID(r.Context(), id, resourceType)
	if err != nil {
		h.logger.Error(logging.MongoDB, logging.Persistence, "failed to fetch audit logs", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
			logging.ResourceID:   id,
		})
		json.WriteInternalError(w)
		return
	}

	if len(logs) == 0 {
		json.WriteNotFoundError(w, notFoundMessage(string(resourceType), id))
		return
	}

	stats := domain.BuildAuditStats(logs)

	json.Write(w, http.StatusOK, aggregationResponse{
		Success: true,
		Data: map[string]any{
			idField:         id,
			"total_eventos": stats.Total,
			"estadisticas": estadisticas{
				Total:        stats.Total,
				PorAccion:    stats.ByAction,
				PorEstado:    stats.ByStatus,
				PrimerEvento: stats.FirstEvent,
				UltimoEvento: stats.LastEvent,
			},
			"eventos": logs,
		},
	})
}

// CreateHandler godoc
// @Summary      Append an audit log directly
// @Description  Validates and persists an audit log without going through the broker
// @Tags         audit
// @Accept       json
// @Produce      json
// @Param        request body createRequest true "Audit log attributes"
// @Success      201 {object} createResponse
// @Failure      422 {object} json.ErrorResponse "Validation failure with field errors"
// @Router       /audit [post]
func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteBadRequestError(w, err.Error())
		return
	}

	event := domain.AuditEvent{
		ResourceType: domain.ResourceType(req.ResourceType),
		ResourceID:   req.ResourceID,
		Action:       domain.Action(req.Action),
		ChangesMade:  req.ChangesMade,
		Status:       domain.Status(req.Status),
		ErrorMessage: req.ErrorMessage,
	}

	// Same schema gate as the consumer path
	if errs := event.Validate(); len(errs) > 0 {
		json.WriteUnprocessableError(w, "No se pudo crear el log", errs)
		return
	}

	record := domain.NewAuditLog(event)

	if err := h.repo.Insert(r.Context(), record); err != nil {
		h.logger.Error(logging.MongoDB, logging.Persistence, "failed to insert audit log", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w)
		return
	}

	json.Write(w, http.StatusCreated, createResponse{
		Success: true,
		Message: "Log creado exitosamente",
		Data:    record,
	})
}

func notFoundMessage(resourceType, resourceID string) string {
	if resourceType == "" {
		return fmt.Sprintf("No se encontraron logs para el recurso con id %s", resourceID)
	}
	return fmt.Sprintf("No se encontraron logs para el recurso %s con id %s", resourceType, resourceID)
}
