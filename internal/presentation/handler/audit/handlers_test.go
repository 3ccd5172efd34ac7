package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calima-dev/audixa/internal/domain"
	"github.com/calima-dev/audixa/internal/infrastructure/logging"
	"github.com/calima-dev/audixa/internal/persistence/repository"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo domain.AuditLogRepository) http.Handler {
	logger := logging.NewLogger(&logging.LoggerConfig{Logger: "zerolog", Level: "fatal"})
	h := NewHandler(repo, logger)

	r := chi.NewRouter()
	r.Route("/audit", func(r chi.Router) {
		r.Get("/", h.ListHandler)
		r.Post("/", h.CreateHandler)
		r.Get("/invoices/{id}", h.ShowInvoiceHandler)
		r.Get("/clients/{id}", h.ShowClientHandler)
		r.Get("/{resourceId}", h.ShowHandler)
	})
	return r
}

func get(t *testing.T, router http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func seedLog(t *testing.T, repo domain.AuditLogRepository, l domain.AuditLog) {
	t.Helper()
	if l.ID == "" {
		l.ID = fmt.Sprintf("%s-%s-%d", l.ResourceID, l.Action, l.CreatedAt.UnixNano())
	}
	require.NoError(t, repo.Insert(context.Background(), &l))
}

func TestListReturnsEmptyArrayNotFound(t *testing.T) {
	router := newTestRouter(repository.NewInMemoryAuditLogRepository())

	rec := get(t, router, "/audit?resource_type=client&status=failed")

	// "no matches" is a valid state for a broad filter
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(0), body["total_audit_logs"])
	assert.Empty(t, body["data"])
}

func TestListCapsAtHundredButCountsAll(t *testing.T) {
	repo := repository.NewInMemoryAuditLogRepository()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 130; i++ {
		seedLog(t, repo, domain.AuditLog{
			ResourceType: domain.ResourceInvoice,
			ResourceID:   "inv-7",
			Action:       domain.ActionUpdate,
			Status:       domain.StatusSuccess,
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		})
	}

	rec := get(t, newTestRouter(repo), "/audit")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(130), body["total_audit_logs"])
	assert.Len(t, body["data"], 100)
}

func TestListRejectsUnknownFilterValues(t *testing.T) {
	router := newTestRouter(repository.NewInMemoryAuditLogRepository())

	for _, url := range []string{
		"/audit?resource_type=supplier",
		"/audit?status=pending",
	} {
		rec := get(t, router, url)
		assert.Equal(t, http.StatusBadRequest, rec.Code, url)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
	}
}

func TestListRejectsMalformedDates(t *testing.T) {
	router := newTestRouter(repository.NewInMemoryAuditLogRepository())

	rec := get(t, router, "/audit?start_date=not-a-date")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "start_date")
}

func TestListDateRangeIsInclusive(t *testing.T) {
	repo := repository.NewInMemoryAuditLogRepository()
	seedLog(t, repo, domain.AuditLog{
		ResourceType: domain.ResourceClient,
		ResourceID:   "c-1",
		Action:       domain.ActionCreate,
		Status:       domain.StatusSuccess,
		CreatedAt:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})

	rec := get(t, newTestRouter(repo), "/audit?start_date=2026-02-01&end_date=2026-02-01")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(1), body["total_audit_logs"])
}

func TestShowReturnsAllRecordsNewestFirst(t *testing.T) {
	repo := repository.NewInMemoryAuditLogRepository()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 110; i++ {
		seedLog(t, repo, domain.AuditLog{
			ResourceType: domain.ResourceClient,
			ResourceID:   "c-5",
			Action:       domain.ActionUpdate,
			Status:       domain.StatusSuccess,
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		})
	}

	rec := get(t, newTestRouter(repo), "/audit/c-5")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	// Show is uncapped, unlike List
	assert.Len(t, body["data"], 110)

	data := body["data"].([]any)
	first := data[0].(map[string]any)["created_at"].(string)
	last := data[len(data)-1].(map[string]any)["created_at"].(string)
	assert.Greater(t, first, last)
}

func TestShowUnknownResourceReturns404NamingID(t *testing.T) {
	rec := get(t, newTestRouter(repository.NewInMemoryAuditLogRepository()), "/audit/ghost-1?resource_type=client")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "ghost-1")
}

func TestShowInvoiceAggregation(t *testing.T) {
	repo := repository.NewInMemoryAuditLogRepository()
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	events := []struct {
		action domain.Action
		status domain.Status
	}{
		{domain.ActionCreate, domain.StatusSuccess},
		{domain.ActionUpdate, domain.StatusSuccess},
		{domain.ActionUpdate, domain.StatusFailed},
		{domain.ActionError, domain.StatusFailed},
	}
	for i, e := range events {
		seedLog(t, repo, domain.AuditLog{
			ResourceType: domain.ResourceInvoice,
			ResourceID:   "inv-1",
			Action:       e.action,
			Status:       e.status,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
	}
	// Same id under another type must not leak into the invoice view
	seedLog(t, repo, domain.AuditLog{
		ResourceType: domain.ResourceClient,
		ResourceID:   "inv-1",
		Action:       domain.ActionCreate,
		Status:       domain.StatusSuccess,
		CreatedAt:    base,
	})

	rec := get(t, newTestRouter(repo), "/audit/invoices/inv-1")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	data := body["data"].(map[string]any)

	assert.Equal(t, "inv-1", data["invoice_id"])
	assert.Equal(t, float64(4), data["total_eventos"])
	assert.Len(t, data["eventos"], 4)

	stats := data["estadisticas"].(map[string]any)
	assert.Equal(t, float64(4), stats["total"])
	assert.Equal(t, map[string]any{"create": float64(1), "update": float64(2), "error": float64(1)}, stats["por_accion"])
	assert.Equal(t, map[string]any{"success": float64(2), "failed": float64(2)}, stats["por_estado"])
	assert.Equal(t, base.Format(time.RFC3339), stats["primer_evento"])
	assert.Equal(t, base.Add(3*time.Minute).Format(time.RFC3339), stats["ultimo_evento"])
}

func TestShowClientAggregationNotFound(t *testing.T) {
	rec := get(t, newTestRouter(repository.NewInMemoryAuditLogRepository()), "/audit/clients/c-404")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body["message"], "c-404")
}

func TestCreatePersistsValidLog(t *testing.T) {
	repo := repository.NewInMemoryAuditLogRepository()
	router := newTestRouter(repo)

	payload := `{
		"resource_type": "client",
		"resource_id": "c-9",
		"action": "create",
		"status": "success",
		"changes_made": {"name": "Acme"}
	}`

	req := httptest.NewRequest(http.MethodPost, "/audit", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Log creado exitosamente", body["message"])

	data := body["data"].(map[string]any)
	assert.NotEmpty(t, data["id"])
	assert.NotEmpty(t, data["created_at"])
	assert.Equal(t, 1, repo.Len())
}

func TestCreateRejectsInvalidEnums(t *testing.T) {
	repo := repository.NewInMemoryAuditLogRepository()
	router := newTestRouter(repo)

	payload := `{"resource_type": "supplier", "resource_id": "s-1", "action": "archive", "status": "maybe"}`

	req := httptest.NewRequest(http.MethodPost, "/audit", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No se pudo crear el log", body["message"])
	assert.NotEmpty(t, body["errors"])

	// Nothing may reach the store on validation failure
	assert.Equal(t, 0, repo.Len())
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(repository.NewInMemoryAuditLogRepository())

	req := httptest.NewRequest(http.MethodPost, "/audit", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
