package watch

import (
	"context"
	"log/slog"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
)

// CartRepository publishes a domain.Cart snapshot after every cart write.
type CartRepository struct {
	repository.CartRepository
	*Watcher[domain.Cart]
}

// NewCartRepository wraps inner.
func NewCartRepository(inner repository.CartRepository, logger *slog.Logger) *CartRepository {
	load := func(ctx context.Context) (domain.Cart, error) {
		lines, err := inner.List(ctx)
		if err != nil {
			return domain.Cart{}, err
		}
		return domain.NewCart(lines), nil
	}
	return &CartRepository{
		CartRepository: inner,
		Watcher:        NewWatcher("cart", load, logger),
	}
}

func (r *CartRepository) Upsert(ctx context.Context, line domain.CartLine) error {
	if err := r.CartRepository.Upsert(ctx, line); err != nil {
		return err
	}
	r.Refresh(ctx)
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, productID string) error {
	if err := r.CartRepository.Delete(ctx, productID); err != nil {
		return err
	}
	r.Refresh(ctx)
	return nil
}

func (r *CartRepository) DeleteAll(ctx context.Context) error {
	if err := r.CartRepository.DeleteAll(ctx); err != nil {
		return err
	}
	r.Refresh(ctx)
	return nil
}
