package http

import (
	"log/slog"
	"net/http"

	"github.com/Catalina-leal/Huertohogarapp/internal/service"
	"github.com/Catalina-leal/Huertohogarapp/pkg/httputil"
	"github.com/Catalina-leal/Huertohogarapp/pkg/validator"
)

// CheckoutHandler turns the cart into an order.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, logger: logger}
}

// CheckoutResponse is returned by a successful checkout.
type CheckoutResponse struct {
	OrderID     string `json:"order_id"`
	ShortID     string `json:"short_id"`
	TotalAmount int64  `json:"total_amount"`
}

// PlaceOrder handles POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req service.PlaceOrderInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, CheckoutResponse{
		OrderID:     order.ID,
		ShortID:     order.ShortID(),
		TotalAmount: order.TotalAmount,
	})
}
