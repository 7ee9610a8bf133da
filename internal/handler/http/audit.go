package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/CampusMerchGo/internal/domain"
	"github.com/utafrali/CampusMerchGo/internal/service"
	"github.com/utafrali/CampusMerchGo/pkg/httputil"
	"github.com/utafrali/CampusMerchGo/pkg/validator"
)

// AuditHandler handles HTTP requests for the stock audit workflow.
type AuditHandler struct {
	service *service.AuditService
	logger  *slog.Logger
}

// NewAuditHandler creates a new audit HTTP handler.
func NewAuditHandler(svc *service.AuditService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// RequestAdjustmentRequest is the JSON request body for proposing a stock
// adjustment.
type RequestAdjustmentRequest struct {
	StaffID     string `json:"staff_id" validate:"required"`
	ItemCode    int    `json:"item_code" validate:"required,gte=1"`
	Size        string `json:"size" validate:"required"`
	NewQuantity int    `json:"new_quantity" validate:"gte=0"`
	Reason      string `json:"reason" validate:"required"`
}

// DecideAdjustmentRequest is the JSON request body for approving or
// rejecting a pending adjustment.
type DecideAdjustmentRequest struct {
	ApproverID string `json:"approver_id" validate:"required"`
	Notes      string `json:"notes"`
}

// --- Handlers ---

// RequestAdjustment handles POST /api/v1/audits
func (h *AuditHandler) RequestAdjustment(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RequestAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	log, err := h.service.RequestAdjustment(r.Context(), req.StaffID, req.ItemCode, req.Size, req.NewQuantity, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: log})
}

// Approve handles POST /api/v1/audits/{id}/approve
func (h *AuditHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req DecideAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.ApproveAndApply(r.Context(), id.String(), req.ApproverID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"audit_log_id": id.String(),
		"status":       domain.AuditStatusApproved,
	}})
}

// Reject handles POST /api/v1/audits/{id}/reject
func (h *AuditHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req DecideAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.Reject(r.Context(), id.String(), req.ApproverID, req.Notes); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"audit_log_id": id.String(),
		"status":       domain.AuditStatusRejected,
	}})
}

// ListPending handles GET /api/v1/audits/pending
func (h *AuditHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.ListPending(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: logs})
}

// List handles GET /api/v1/audits
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage, ok := parsePagination(w, r)
	if !ok {
		return
	}

	logs, total, err := h.service.ListLogs(r.Context(), page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse[domain.StockAuditLog](logs, total, page, perPage))
}
