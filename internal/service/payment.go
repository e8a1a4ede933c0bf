package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Catalina-leal/Huertohogarapp/internal/remote"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
)

// Accepted payment methods.
const (
	PaymentMethodCreditCard = "credit_card"
	PaymentMethodDebitCard  = "debit_card"
	PaymentMethodTransfer   = "transfer"
	PaymentMethodCash       = "cash"
)

// PaymentGateway charges orders. *remote.Client satisfies it.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, req remote.PaymentRequest) (*remote.PaymentResult, error)
}

// PayInput holds the parameters of a payment request.
type PayInput struct {
	Method string `json:"payment_method" validate:"required,oneof=credit_card debit_card transfer cash"`
}

// PaymentService forwards payments for stored orders to the backend.
type PaymentService struct {
	orders  repository.OrderRepository
	gateway PaymentGateway
	logger  *slog.Logger
}

// NewPaymentService creates a new payment service. A nil gateway makes
// every payment fail with RemoteUnavailable.
func NewPaymentService(orders repository.OrderRepository, gateway PaymentGateway, logger *slog.Logger) *PaymentService {
	return &PaymentService{orders: orders, gateway: gateway, logger: logger}
}

// Pay charges the total of orderID, which must belong to userEmail. The
// backend's answer is returned as is; a declined payment is PaymentFailed.
func (s *PaymentService) Pay(ctx context.Context, userEmail, orderID string, input PayInput) (*remote.PaymentResult, error) {
	method := strings.ToLower(strings.TrimSpace(input.Method))
	if !isPaymentMethod(method) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported payment method %q", input.Method))
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for payment: %w", storageError(err))
	}
	if !strings.EqualFold(order.UserEmail, userEmail) {
		return nil, apperrors.NotFound("order", orderID)
	}

	if s.gateway == nil {
		return nil, apperrors.RemoteUnavailable("payments are not available offline", nil)
	}

	result, err := s.gateway.ProcessPayment(ctx, remote.PaymentRequest{
		OrderID:       order.ID,
		Amount:        float64(order.TotalAmount),
		PaymentMethod: method,
	})
	if err != nil {
		return nil, remoteError("payment could not be processed", err)
	}

	s.logger.InfoContext(ctx, "payment processed",
		slog.String("order_id", order.ID),
		slog.String("payment_id", result.PaymentID),
		slog.String("status", result.Status),
	)

	if strings.EqualFold(result.Status, remote.PaymentFailed) {
		msg := result.Message
		if msg == "" {
			msg = "the payment was declined"
		}
		return result, apperrors.PaymentFailed(msg)
	}
	return result, nil
}

func isPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodTransfer, PaymentMethodCash:
		return true
	default:
		return false
	}
}
