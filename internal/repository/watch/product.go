package watch

import (
	"context"
	"log/slog"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
)

// ProductRepository publishes the full catalog after every product write.
type ProductRepository struct {
	repository.ProductRepository
	*Watcher[[]domain.Product]
}

// NewProductRepository wraps inner.
func NewProductRepository(inner repository.ProductRepository, logger *slog.Logger) *ProductRepository {
	load := func(ctx context.Context) ([]domain.Product, error) {
		return inner.List(ctx, repository.ProductFilter{})
	}
	return &ProductRepository{
		ProductRepository: inner,
		Watcher:           NewWatcher("products", load, logger),
	}
}

func (r *ProductRepository) Upsert(ctx context.Context, p *domain.Product) error {
	if err := r.ProductRepository.Upsert(ctx, p); err != nil {
		return err
	}
	r.Refresh(ctx)
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if err := r.ProductRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.Refresh(ctx)
	return nil
}

func (r *ProductRepository) SetActive(ctx context.Context, id string, active bool) error {
	if err := r.ProductRepository.SetActive(ctx, id, active); err != nil {
		return err
	}
	r.Refresh(ctx)
	return nil
}
