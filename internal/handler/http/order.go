package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Catalina-leal/Huertohogarapp/internal/service"
	"github.com/Catalina-leal/Huertohogarapp/internal/session"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
	"github.com/Catalina-leal/Huertohogarapp/pkg/httputil"
	"github.com/Catalina-leal/Huertohogarapp/pkg/validator"
)

// OrderHandler serves the order history of the logged-in shopper.
type OrderHandler struct {
	orders   *service.OrderService
	payments *service.PaymentService
	session  *session.Provider
	logger   *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(orders *service.OrderService, payments *service.PaymentService, provider *session.Provider, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		payments: payments,
		session:  provider,
		logger:   logger,
	}
}

// ListMine handles GET /api/v1/orders
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	email, err := currentShopper(r, h.session)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, orders)
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	email, err := currentShopper(r, h.session)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	id := chi.URLParam(r, "id")
	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if !strings.EqualFold(order.UserEmail, email) {
		httputil.WriteError(w, r, apperrors.NotFound("order", id), h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, order)
}

// Pay handles POST /api/v1/orders/{id}/payment
func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	email, err := currentShopper(r, h.session)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req service.PayInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	result, err := h.payments.Pay(r.Context(), email, chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}
