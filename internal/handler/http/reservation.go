package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/CampusMerchGo/internal/domain"
	"github.com/utafrali/CampusMerchGo/internal/repository"
	"github.com/utafrali/CampusMerchGo/internal/service"
	"github.com/utafrali/CampusMerchGo/pkg/httputil"
	"github.com/utafrali/CampusMerchGo/pkg/validator"
)

// ReservationHandler handles HTTP requests for reservation endpoints.
type ReservationHandler struct {
	service *service.ReservationService
	logger  *slog.Logger
}

// NewReservationHandler creates a new reservation HTTP handler.
func NewReservationHandler(svc *service.ReservationService, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReservationRequest is the JSON request body for creating a reservation.
type CreateReservationRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	StudentName string `json:"student_name" validate:"required"`
	Course      string `json:"course"`
	ItemCode    int    `json:"item_code" validate:"required,gte=1"`
	Size        string `json:"size" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,gte=1"`
}

// BundleLineRequest is one line of a bundle creation request.
type BundleLineRequest struct {
	ItemCode int    `json:"item_code" validate:"required,gte=1"`
	Size     string `json:"size" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gte=1"`
}

// CreateBundleRequest is the JSON request body for creating a reservation bundle.
type CreateBundleRequest struct {
	StudentID   string              `json:"student_id" validate:"required"`
	StudentName string              `json:"student_name" validate:"required"`
	Course      string              `json:"course"`
	Items       []BundleLineRequest `json:"items" validate:"required,min=1,dive"`
}

// CancelRequest is the JSON request body for cancelling a reservation.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// PayRequest is the JSON request body for recording a payment.
type PayRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=CASH GCASH BANK_TRANSFER"`
}

// ReturnRequest is the JSON request body for requesting a return. A zero
// quantity means the full reservation is returned.
type ReturnRequest struct {
	Quantity int    `json:"quantity" validate:"omitempty,gte=1"`
	Reason   string `json:"reason" validate:"required"`
}

// RejectReturnRequest is the JSON request body for rejecting a return.
type RejectReturnRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// --- Handlers ---

// Create handles POST /api/v1/reservations
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateReservationRequest
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

	res, err := h.service.Create(r.Context(), service.CreateReservationInput{
		StudentID:   req.StudentID,
		StudentName: req.StudentName,
		Course:      req.Course,
		ItemCode:    req.ItemCode,
		Size:        req.Size,
		Quantity:    req.Quantity,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: res})
}

// CreateBundle handles POST /api/v1/reservations/bundle
func (h *ReservationHandler) CreateBundle(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateBundleRequest
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

	lines := make([]service.BundleLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = service.BundleLine{
			ItemCode: item.ItemCode,
			Size:     item.Size,
			Quantity: item.Quantity,
		}
	}

	result, err := h.service.CreateBundle(r.Context(), req.StudentID, req.StudentName, req.Course, lines)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}

// Get handles GET /api/v1/reservations/{id}
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	res, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// List handles GET /api/v1/reservations
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage, ok := parsePagination(w, r)
	if !ok {
		return
	}

	filter := repository.ReservationFilter{
		StudentID: r.URL.Query().Get("student_id"),
		BundleID:  r.URL.Query().Get("bundle_id"),
		Page:      page,
		PerPage:   perPage,
	}
	if v := r.URL.Query().Get("status"); v != "" {
		for _, status := range strings.Split(v, ",") {
			status = strings.TrimSpace(status)
			if !domain.IsValidStatus(status) {
				httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "unknown status: " + status},
				})
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if v := r.URL.Query().Get("item_code"); v != "" {
		code, err := strconv.Atoi(v)
		if err != nil || code <= 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "item_code must be a positive integer"},
			})
			return
		}
		filter.ItemCode = code
	}

	reservations, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse[domain.Reservation](reservations, total, page, perPage))
}

// ListPending handles GET /api/v1/reservations/pending
func (h *ReservationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.service.ListPending(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: reservations})
}

// ListUnpaid handles GET /api/v1/reservations/unpaid
func (h *ReservationHandler) ListUnpaid(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.service.ListUnpaid(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: reservations})
}

// ListReturnRequests handles GET /api/v1/reservations/returns
func (h *ReservationHandler) ListReturnRequests(w http.ResponseWriter, r *http.Request) {
	reservations, err := h.service.ListReturnRequests(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: reservations})
}

// Approve handles POST /api/v1/reservations/{id}/approve
func (h *ReservationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.applyEvent(w, r, h.service.Approve, domain.StatusApprovedWaitingPayment)
}

// Cancel handles POST /api/v1/reservations/{id}/cancel
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req CancelRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
			})
			return
		}
	}

	if err := h.service.Cancel(r.Context(), id.String(), req.Reason); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"reservation_id": id.String(),
		"status":         domain.StatusCancelled,
	}})
}

// Pay handles POST /api/v1/reservations/{id}/pay
func (h *ReservationHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req PayRequest
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

	if err := h.service.MarkAsPaid(r.Context(), id.String(), req.PaymentMethod); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"reservation_id": id.String(),
		"status":         domain.StatusPaidAwaitingPickupApproval,
	}})
}

// RequestPickup handles POST /api/v1/reservations/{id}/pickup/request
func (h *ReservationHandler) RequestPickup(w http.ResponseWriter, r *http.Request) {
	h.applyEvent(w, r, h.service.RequestPickup, domain.StatusPickupRequested)
}

// ApprovePickup handles POST /api/v1/reservations/{id}/pickup/approve
func (h *ReservationHandler) ApprovePickup(w http.ResponseWriter, r *http.Request) {
	h.applyEvent(w, r, h.service.ApprovePickup, domain.StatusApprovedForPickup)
}

// Claim handles POST /api/v1/reservations/{id}/claim
func (h *ReservationHandler) Claim(w http.ResponseWriter, r *http.Request) {
	h.applyEvent(w, r, h.service.Claim, domain.StatusCompleted)
}

// RequestReturn handles POST /api/v1/reservations/{id}/return/request
func (h *ReservationHandler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ReturnRequest
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

	// Zero quantity means the whole reservation is returned.
	if req.Quantity == 0 {
		if err := h.service.RequestReturn(r.Context(), id.String(), req.Reason); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
			"reservation_id": id.String(),
			"status":         domain.StatusReturnRequested,
		}})
		return
	}

	returnID, err := h.service.RequestPartialReturn(r.Context(), id.String(), req.Quantity, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"reservation_id":        id.String(),
		"return_reservation_id": returnID,
		"status":                domain.StatusReturnRequested,
	}})
}

// ApproveReturn handles POST /api/v1/reservations/{id}/return/approve
func (h *ReservationHandler) ApproveReturn(w http.ResponseWriter, r *http.Request) {
	h.applyEvent(w, r, h.service.ApproveReturn, domain.StatusReturnedRefunded)
}

// RejectReturn handles POST /api/v1/reservations/{id}/return/reject
func (h *ReservationHandler) RejectReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RejectReturnRequest
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

	if err := h.service.RejectReturn(r.Context(), id.String(), req.Reason); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"reservation_id": id.String(),
		"status":         domain.StatusCompleted,
	}})
}

// applyEvent runs a body-less status transition and reports the new status.
func (h *ReservationHandler) applyEvent(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) error, status string) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := op(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"reservation_id": id.String(),
		"status":         status,
	}})
}

// --- Bundle handlers ---

// GetBundle handles GET /api/v1/bundles/{bundleId}
func (h *ReservationHandler) GetBundle(w http.ResponseWriter, r *http.Request) {
	bundleID, ok := httputil.ParseUUID(w, chi.URLParam(r, "bundleId"))
	if !ok {
		return
	}

	bundle, err := h.service.GetBundle(r.Context(), bundleID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: bundle})
}

// ApproveBundle handles POST /api/v1/bundles/{bundleId}/approve
func (h *ReservationHandler) ApproveBundle(w http.ResponseWriter, r *http.Request) {
	h.applyBundleEvent(w, r, h.service.ApproveBundle)
}

// PayBundle handles POST /api/v1/bundles/{bundleId}/pay
func (h *ReservationHandler) PayBundle(w http.ResponseWriter, r *http.Request) {
	bundleID, ok := httputil.ParseUUID(w, chi.URLParam(r, "bundleId"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req PayRequest
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

	result, err := h.service.PayBundle(r.Context(), bundleID.String(), req.PaymentMethod)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, batchStatus(result), httputil.Response{Data: result})
}

// RequestBundlePickup handles POST /api/v1/bundles/{bundleId}/pickup/request
func (h *ReservationHandler) RequestBundlePickup(w http.ResponseWriter, r *http.Request) {
	h.applyBundleEvent(w, r, h.service.RequestBundlePickup)
}

// ApproveBundlePickup handles POST /api/v1/bundles/{bundleId}/pickup/approve
func (h *ReservationHandler) ApproveBundlePickup(w http.ResponseWriter, r *http.Request) {
	h.applyBundleEvent(w, r, h.service.ApproveBundlePickup)
}

// ClaimBundle handles POST /api/v1/bundles/{bundleId}/claim
func (h *ReservationHandler) ClaimBundle(w http.ResponseWriter, r *http.Request) {
	h.applyBundleEvent(w, r, h.service.ClaimBundle)
}

// CancelBundle handles POST /api/v1/bundles/{bundleId}/cancel
func (h *ReservationHandler) CancelBundle(w http.ResponseWriter, r *http.Request) {
	bundleID, ok := httputil.ParseUUID(w, chi.URLParam(r, "bundleId"))
	if !ok {
		return
	}

	var req CancelRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
			})
			return
		}
	}

	result, err := h.service.CancelBundle(r.Context(), bundleID.String(), req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, batchStatus(result), httputil.Response{Data: result})
}

// applyBundleEvent runs a body-less bundle fan-out and reports the batch result.
func (h *ReservationHandler) applyBundleEvent(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, bundleID string) (*domain.BatchResult, error)) {
	bundleID, ok := httputil.ParseUUID(w, chi.URLParam(r, "bundleId"))
	if !ok {
		return
	}

	result, err := op(r.Context(), bundleID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, batchStatus(result), httputil.Response{Data: result})
}

// batchStatus maps a fan-out result to 200 on full success and 207 when
// some members failed.
func batchStatus(result *domain.BatchResult) int {
	if result.Partial() {
		return http.StatusMultiStatus
	}
	return http.StatusOK
}
