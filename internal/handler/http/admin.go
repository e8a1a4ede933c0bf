package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/service"
	"github.com/Catalina-leal/Huertohogarapp/pkg/httputil"
	"github.com/Catalina-leal/Huertohogarapp/pkg/pagination"
	"github.com/Catalina-leal/Huertohogarapp/pkg/validator"
)

// maxListLimit caps the limit query parameter of admin listings.
const maxListLimit = 500

// AdminHandler serves the back-office endpoints.
type AdminHandler struct {
	orders  *service.OrderService
	sales   *service.SalesService
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(orders *service.OrderService, sales *service.SalesService, catalog *service.CatalogService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		orders:  orders,
		sales:   sales,
		catalog: catalog,
		logger:  logger,
	}
}

// --- Request DTOs ---

// UpdateStatusRequest is the JSON request body for changing an order status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SetActiveRequest is the JSON request body for hiding or showing a product.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// --- Handlers ---

// SalesReport handles GET /api/v1/admin/sales
func (h *AdminHandler) SalesReport(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	report, err := h.sales.Report(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, report)
}

// ListOrders handles GET /api/v1/admin/orders
//
// Query parameters: status, page, per_page.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.FromRequest(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var status *domain.OrderStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s, err := domain.ParseStatus(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: err.Error()},
			})
			return
		}
		status = &s
	}

	orders, err := h.orders.ListAll(r.Context(), status, 0)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, pagination.Slice(orders, page))
}

// OrderItems handles GET /api/v1/admin/orders/{id}/items
func (h *AdminHandler) OrderItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.orders.Items(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, items)
}

// UpdateOrderStatus handles PUT /api/v1/admin/orders/{id}/status
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, order)
}

// UpsertProduct handles PUT /api/v1/admin/products/{id}
func (h *AdminHandler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	product, err := h.catalog.UpsertProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, product)
}

// SetProductActive handles PUT /api/v1/admin/products/{id}/active
func (h *AdminHandler) SetProductActive(w http.ResponseWriter, r *http.Request) {
	var req SetActiveRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	if err := h.catalog.SetProductActive(r.Context(), chi.URLParam(r, "id"), *req.Active); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 1 || limit > maxListLimit {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "limit must be an integer between 1 and 500"},
		})
		return 0, false
	}
	return limit, true
}
