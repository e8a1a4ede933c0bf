package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/session"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
	"github.com/Catalina-leal/Huertohogarapp/pkg/logger"
	"github.com/Catalina-leal/Huertohogarapp/pkg/tracing"
)

var checkoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Checkout attempts by result.",
	},
	[]string{"result"},
)

// Identity resolves the logged-in shopper. *session.Provider satisfies it.
type Identity interface {
	Current(ctx context.Context) (session.State, error)
}

// PlaceOrderInput holds the shipping details entered at checkout.
type PlaceOrderInput struct {
	Address      string     `json:"address" validate:"required,max=200"`
	City         string     `json:"city" validate:"max=100"`
	Region       string     `json:"region" validate:"max=100"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	Notes        string     `json:"notes" validate:"max=500"`
}

// CheckoutService turns the session cart into an order.
type CheckoutService struct {
	identity Identity
	cart     *CartService
	orders   *OrderService
	logger   *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(identity Identity, cart *CartService, orders *OrderService, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		identity: identity,
		cart:     cart,
		orders:   orders,
		logger:   logger,
	}
}

// PlaceOrder creates an order from the cart of the logged-in shopper and
// empties the cart. Any failure leaves the cart as it was and stores no
// order. Calling it twice places two orders.
func (s *CheckoutService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "checkout.place_order")
	order, err := s.placeOrder(ctx, input)
	tracing.End(span, err)
	checkoutsTotal.WithLabelValues(checkoutResult(err)).Inc()
	if err != nil {
		s.logger.WarnContext(ctx, "checkout failed", slog.String("error", err.Error()))
		return nil, err
	}
	return order, nil
}

func (s *CheckoutService) placeOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	state, err := s.identity.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve shopper: %w", storageError(err))
	}
	if !state.LoggedIn || state.Email == "" {
		return nil, apperrors.NotAuthenticated()
	}
	ctx = logger.WithUserEmail(ctx, state.Email)

	var order *domain.Order
	err = s.cart.Drain(ctx, func(lines []domain.CartLine) error {
		if len(lines) == 0 {
			return apperrors.EmptyCart()
		}

		address := domain.ComposeAddress(input.Address, input.City, input.Region)
		if address == "" {
			return apperrors.InvalidInput("a shipping address is required")
		}

		created, err := s.orders.storeOrder(ctx, CreateOrderInput{
			UserEmail:       state.Email,
			Lines:           lines,
			ShippingAddress: address,
			DeliveryDate:    input.DeliveryDate,
			Notes:           input.Notes,
		})
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Outside Drain: the backend sync must not run under the cart lock.
	s.orders.announceOrder(ctx, order)

	s.logger.InfoContext(ctx, "checkout completed",
		slog.String("order_id", order.ID),
		slog.Int64("total_amount", order.TotalAmount),
	)
	return order, nil
}

func checkoutResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return "not_authenticated"
	default:
		return "error"
	}
}
