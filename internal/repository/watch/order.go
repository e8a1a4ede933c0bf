package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
)

// OrderRepository publishes every order, newest first, after each order write.
type OrderRepository struct {
	repository.OrderRepository
	*Watcher[[]domain.Order]
}

// NewOrderRepository wraps inner.
func NewOrderRepository(inner repository.OrderRepository, logger *slog.Logger) *OrderRepository {
	load := func(ctx context.Context) ([]domain.Order, error) {
		return inner.List(ctx, repository.OrderFilter{})
	}
	return &OrderRepository{
		OrderRepository: inner,
		Watcher:         NewWatcher("orders", load, logger),
	}
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if err := r.OrderRepository.Create(ctx, o); err != nil {
		return err
	}
	r.Refresh(ctx)
	return nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, trackingNumber string, updatedAt time.Time) error {
	if err := r.OrderRepository.UpdateStatus(ctx, id, status, trackingNumber, updatedAt); err != nil {
		return err
	}
	r.Refresh(ctx)
	return nil
}
