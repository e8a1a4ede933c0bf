package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/event"
	"github.com/Catalina-leal/Huertohogarapp/internal/notification"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
	"github.com/Catalina-leal/Huertohogarapp/pkg/tracing"
)

// RemoteOrders is the part of the backend API the order service uses.
// *remote.Client satisfies it.
type RemoteOrders interface {
	CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	OrdersByUser(ctx context.Context, email string) ([]domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

// Notifier receives a notification after every status change. It must not
// block. *notification.Dispatcher satisfies it.
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification)
}

// OrderOptions tunes an OrderService.
type OrderOptions struct {
	// StrictTransitions enforces the lifecycle graph on status updates.
	// When false any valid status may follow any other.
	StrictTransitions bool
	// Remote, when set, is preferred for history reads and receives every
	// status change before the local record is touched.
	Remote RemoteOrders
}

// OrderService implements the business logic for order operations.
type OrderService struct {
	repo     repository.WatchedOrderRepository
	producer *event.Producer
	notifier Notifier
	logger   *slog.Logger
	opts     OrderOptions
	now      func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	repo repository.WatchedOrderRepository,
	producer *event.Producer,
	notifier Notifier,
	logger *slog.Logger,
	opts OrderOptions,
) *OrderService {
	return &OrderService{
		repo:     repo,
		producer: producer,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		now:      utcNow,
	}
}

// CreateOrderInput holds the parameters for creating an order.
type CreateOrderInput struct {
	UserEmail       string
	Lines           []domain.CartLine
	ShippingAddress string
	DeliveryDate    *time.Time
	Notes           string
}

// CreateOrder builds an order from cart lines and stores it with its items
// in one transaction. The new order is CONFIRMED. The event, notification
// and backend sync that follow are best effort.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	order, err := s.storeOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	s.announceOrder(ctx, order)
	return order, nil
}

// storeOrder validates input and commits the order locally.
func (s *OrderService) storeOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	email := strings.ToLower(strings.TrimSpace(input.UserEmail))
	if email == "" {
		return nil, apperrors.InvalidInput("user email is required")
	}
	if len(input.Lines) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}
	for i, line := range input.Lines {
		if line.ProductID == "" {
			return nil, apperrors.InvalidInput(fmt.Sprintf("item %d: product id is required", i))
		}
		if line.Quantity < 1 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("item %d: quantity must be greater than 0", i))
		}
		if line.UnitPrice < 0 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("item %d: price must not be negative", i))
		}
	}

	now := s.now()
	orderID := uuid.New().String()

	var total int64
	items := make([]domain.OrderItem, len(input.Lines))
	for i, line := range input.Lines {
		items[i] = domain.NewOrderItem(orderID, line)
		total += items[i].TotalPrice
	}

	order := &domain.Order{
		ID:              orderID,
		UserEmail:       email,
		Status:          domain.StatusConfirmed,
		Items:           items,
		TotalAmount:     total,
		ShippingAddress: input.ShippingAddress,
		DeliveryDate:    input.DeliveryDate,
		Notes:           input.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", storageError(err))
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("user_email", order.UserEmail),
		slog.Int64("total_amount", order.TotalAmount),
		slog.Int("items", len(order.Items)),
	)
	return order, nil
}

// announceOrder runs the side effects of a committed order. Failures are
// logged only.
func (s *OrderService) announceOrder(ctx context.Context, order *domain.Order) {
	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.notifier.Notify(ctx, notification.ForStatus(order.ID, order.UserEmail, order.Status, notification.TitleOrderConfirmed))

	if s.opts.Remote != nil {
		rctx, span := tracing.StartSpan(ctx, "order.remote_create")
		_, err := s.opts.Remote.CreateOrder(rctx, order)
		tracing.End(span, err)
		if err != nil {
			s.logger.WarnContext(ctx, "order kept locally, backend sync failed",
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// UpdateStatus moves an order to a new status. Moving to SHIPPED assigns a
// tracking number when the order has none. The notification and event that
// follow are best effort.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, rawStatus string) (*domain.Order, error) {
	newStatus, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s", rawStatus, statusList()))
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", storageError(err))
	}

	if s.opts.StrictTransitions && !order.CanTransitionTo(newStatus) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot transition from %q to %q", order.Status, newStatus))
	}

	now := s.now()
	oldStatus := order.Status
	tracking := order.TrackingNumber
	if newStatus == domain.StatusShipped && tracking == "" {
		tracking = domain.TrackingNumberAt(now)
	}

	if s.opts.Remote != nil {
		rctx, span := tracing.StartSpan(ctx, "order.remote_update_status")
		remoteOrder, err := s.opts.Remote.UpdateStatus(rctx, id, newStatus)
		tracing.End(span, err)
		if err != nil {
			return nil, remoteError("order status could not be synced with the backend", err)
		}
		if remoteOrder != nil && remoteOrder.TrackingNumber != "" {
			tracking = remoteOrder.TrackingNumber
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, newStatus, tracking, now); err != nil {
		return nil, fmt.Errorf("update order status: %w", storageError(err))
	}

	order.Status = newStatus
	order.TrackingNumber = tracking
	order.UpdatedAt = now

	s.notifier.Notify(ctx, notification.ForStatus(order.ID, order.UserEmail, newStatus, notification.TitleOrderUpdate))

	if err := s.producer.PublishOrderStatusChanged(ctx, id, oldStatus, newStatus, tracking); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("old_status", oldStatus.String()),
		slog.String("new_status", newStatus.String()),
	)

	return order, nil
}

// GetOrder returns one order with its items. The backend is asked first;
// any backend failure falls back to the local store.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if s.opts.Remote != nil {
		order, err := s.opts.Remote.GetOrder(ctx, id)
		if err == nil {
			return order, nil
		}
		s.logRemoteFallback(ctx, "get order", err)
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", storageError(err))
	}
	return order, nil
}

// ListByUser returns a shopper's orders, newest first, preferring the
// backend and falling back to the local store.
func (s *OrderService) ListByUser(ctx context.Context, email string) ([]domain.Order, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.InvalidInput("user email is required")
	}

	if s.opts.Remote != nil {
		orders, err := s.opts.Remote.OrdersByUser(ctx, email)
		if err == nil {
			return orders, nil
		}
		s.logRemoteFallback(ctx, "list orders by user", err)
	}

	orders, err := s.repo.List(ctx, repository.OrderFilter{UserEmail: &email})
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", storageError(err))
	}
	return orders, nil
}

// Items returns the items of one order from the local store.
func (s *OrderService) Items(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	if _, err := s.repo.GetByID(ctx, orderID); err != nil {
		return nil, fmt.Errorf("get order for items: %w", storageError(err))
	}
	items, err := s.repo.Items(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", storageError(err))
	}
	return items, nil
}

// ListAll returns every local order, newest first. Limit zero means all.
func (s *OrderService) ListAll(ctx context.Context, status *domain.OrderStatus, limit int) ([]domain.Order, error) {
	orders, err := s.repo.List(ctx, repository.OrderFilter{Status: status, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", storageError(err))
	}
	return orders, nil
}

// SubscribeOrders streams the full local order list after every change.
func (s *OrderService) SubscribeOrders(ctx context.Context) (<-chan []domain.Order, func()) {
	return s.repo.Subscribe(ctx)
}

func (s *OrderService) logRemoteFallback(ctx context.Context, op string, err error) {
	s.logger.WarnContext(ctx, "backend unavailable, using local orders",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

func statusList() string {
	statuses := domain.ValidStatuses()
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = st.String()
	}
	return strings.Join(names, ", ")
}
