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

// CartHandler handles HTTP requests for cart endpoints. Carts are keyed by
// student number, not UUID.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddCartItemRequest is the JSON request body for adding a cart line.
type AddCartItemRequest struct {
	ItemCode int    `json:"item_code" validate:"required,gte=1"`
	Size     string `json:"size" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gte=1"`
}

// CheckoutRequest is the JSON request body for checking out a cart.
type CheckoutRequest struct {
	StudentName string `json:"student_name" validate:"required"`
	Course      string `json:"course"`
}

// --- Handlers ---

// Get handles GET /api/v1/carts/{studentId}
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// AddItem handles POST /api/v1/carts/{studentId}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AddCartItemRequest
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

	cart, err := h.service.AddItem(r.Context(), chi.URLParam(r, "studentId"), domain.CartItem{
		ItemCode: req.ItemCode,
		Size:     req.Size,
		Quantity: req.Quantity,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// RemoveItem handles DELETE /api/v1/carts/{studentId}/items/{itemCode}/sizes/{size}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	code, size, ok := parseItemKey(w, chi.URLParam(r, "itemCode"), chi.URLParam(r, "size"))
	if !ok {
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), chi.URLParam(r, "studentId"), code, size)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// Clear handles DELETE /api/v1/carts/{studentId}
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCart(r.Context(), chi.URLParam(r, "studentId")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkout handles POST /api/v1/carts/{studentId}/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CheckoutRequest
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

	result, err := h.service.Checkout(r.Context(), chi.URLParam(r, "studentId"), req.StudentName, req.Course)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}
