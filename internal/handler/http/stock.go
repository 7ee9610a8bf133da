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

// StockHandler handles HTTP requests for stock ledger endpoints.
type StockHandler struct {
	service *service.StockService
	logger  *slog.Logger
}

// NewStockHandler creates a new stock HTTP handler.
func NewStockHandler(svc *service.StockService, logger *slog.Logger) *StockHandler {
	return &StockHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// UpsertStockRequest is the JSON request body for creating or updating a
// catalog item.
type UpsertStockRequest struct {
	ItemCode          int    `json:"item_code" validate:"required,gte=1"`
	Size              string `json:"size" validate:"required"`
	Name              string `json:"name" validate:"required"`
	Course            string `json:"course"`
	UnitPrice         int64  `json:"unit_price" validate:"gte=0"`
	Quantity          int    `json:"quantity" validate:"gte=0"`
	LowStockThreshold int    `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

// AdjustStockRequest is the JSON request body for an immediate quantity
// adjustment.
type AdjustStockRequest struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,oneof=reservation_approval reservation_cancellation return_refund audit_adjustment"`
}

// --- Handlers ---

// Upsert handles PUT /api/v1/stock
func (h *StockHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpsertStockRequest
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

	threshold := req.LowStockThreshold
	if threshold == 0 {
		threshold = 5
	}

	item, err := h.service.UpsertItem(r.Context(), &domain.StockItem{
		ItemCode:          req.ItemCode,
		Size:              req.Size,
		Name:              req.Name,
		Course:            req.Course,
		UnitPrice:         req.UnitPrice,
		Quantity:          req.Quantity,
		LowStockThreshold: threshold,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: item})
}

// Get handles GET /api/v1/stock/{itemCode}/sizes/{size}
func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, size, ok := parseItemKey(w, chi.URLParam(r, "itemCode"), chi.URLParam(r, "size"))
	if !ok {
		return
	}

	item, err := h.service.GetItem(r.Context(), code, size)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: item})
}

// GetQuantity handles GET /api/v1/stock/{itemCode}/sizes/{size}/quantity
func (h *StockHandler) GetQuantity(w http.ResponseWriter, r *http.Request) {
	code, size, ok := parseItemKey(w, chi.URLParam(r, "itemCode"), chi.URLParam(r, "size"))
	if !ok {
		return
	}

	qty, err := h.service.GetQuantity(r.Context(), code, size)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"item_code": code,
		"size":      size,
		"quantity":  qty,
	}})
}

// Remove handles DELETE /api/v1/stock/{itemCode}/sizes/{size}
func (h *StockHandler) Remove(w http.ResponseWriter, r *http.Request) {
	code, size, ok := parseItemKey(w, chi.URLParam(r, "itemCode"), chi.URLParam(r, "size"))
	if !ok {
		return
	}

	if err := h.service.RemoveItem(r.Context(), code, size); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Adjust handles POST /api/v1/stock/{itemCode}/sizes/{size}/adjust
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	code, size, ok := parseItemKey(w, chi.URLParam(r, "itemCode"), chi.URLParam(r, "size"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AdjustStockRequest
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

	item, err := h.service.Adjust(r.Context(), code, size, req.Delta, req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: item})
}

// List handles GET /api/v1/stock
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage, ok := parsePagination(w, r)
	if !ok {
		return
	}

	items, total, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse[domain.StockItem](items, total, page, perPage))
}

// ListLowStock handles GET /api/v1/stock/low-stock
func (h *StockHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	page, perPage, ok := parsePagination(w, r)
	if !ok {
		return
	}

	items, total, err := h.service.ListLowStock(r.Context(), page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse[domain.StockItem](items, total, page, perPage))
}

// ListMovements handles GET /api/v1/stock/{itemCode}/sizes/{size}/movements
func (h *StockHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	code, size, ok := parseItemKey(w, chi.URLParam(r, "itemCode"), chi.URLParam(r, "size"))
	if !ok {
		return
	}
	page, perPage, ok := parsePagination(w, r)
	if !ok {
		return
	}

	movements, total, err := h.service.ListMovements(r.Context(), code, size, page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse[domain.StockMovement](movements, total, page, perPage))
}
