package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
)

// RemoteCatalog is the product part of the backend API.
type RemoteCatalog interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// ProductInput holds the editable fields of a catalog product.
type ProductInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=1000"`
	Price       int64  `json:"price" validate:"gte=0"`
	OldPrice    *int64 `json:"old_price,omitempty" validate:"omitempty,gte=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	Category    string `json:"category" validate:"required"`
	ImageURL    string `json:"image_url"`
	Origin      string `json:"origin"`
	Unit        string `json:"unit"`
	IsOrganic   bool   `json:"is_organic"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// CatalogService serves the product catalog. Reads prefer the backend when
// one is configured and fall back to the local store on any failure.
type CatalogService struct {
	repo   repository.WatchedProductRepository
	remote RemoteCatalog
	logger *slog.Logger
	now    func() time.Time
}

// NewCatalogService creates a new catalog service. remote may be nil.
func NewCatalogService(repo repository.WatchedProductRepository, remote RemoteCatalog, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		remote: remote,
		logger: logger,
		now:    utcNow,
	}
}

// ListProducts returns the products matching filter.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	if filter.Category != "" && !domain.IsValidCategory(filter.Category) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown category %q", filter.Category))
	}

	if s.remote != nil {
		all, err := s.remote.ListProducts(ctx)
		if err == nil {
			products := make([]domain.Product, 0, len(all))
			for i := range all {
				if filter.Matches(&all[i]) {
					products = append(products, all[i])
				}
			}
			return products, nil
		}
		s.logger.WarnContext(ctx, "backend unavailable, using local catalog",
			slog.String("error", err.Error()),
		)
	}

	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", storageError(err))
	}
	return products, nil
}

// GetProduct returns one product.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if s.remote != nil {
		p, err := s.remote.GetProduct(ctx, id)
		if err == nil {
			return p, nil
		}
		s.logger.WarnContext(ctx, "backend unavailable, using local product",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", storageError(err))
	}
	return p, nil
}

// UpsertProduct creates or replaces the local product id. A new product is
// active unless the input says otherwise; an existing one keeps its flag.
func (s *CatalogService) UpsertProduct(ctx context.Context, id string, input ProductInput) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if !domain.IsValidCategory(input.Category) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown category %q", input.Category))
	}
	if input.Price < 0 || input.Stock < 0 {
		return nil, apperrors.InvalidInput("price and stock must not be negative")
	}

	active := true
	if existing, err := s.repo.GetByID(ctx, id); err == nil {
		active = existing.IsActive
	} else if !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("get product: %w", storageError(err))
	}
	if input.IsActive != nil {
		active = *input.IsActive
	}

	p := &domain.Product{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		OldPrice:    input.OldPrice,
		Stock:       input.Stock,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		Origin:      input.Origin,
		Unit:        input.Unit,
		IsOrganic:   input.IsOrganic,
		IsActive:    active,
		UpdatedAt:   s.now(),
	}
	if p.Unit == "" {
		p.Unit = "kg"
	}

	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("upsert product: %w", storageError(err))
	}

	s.logger.InfoContext(ctx, "product saved",
		slog.String("product_id", id),
		slog.Int64("price", p.Price),
	)
	return p, nil
}

// DeleteProduct removes a local product. Orders keep their copied names
// and prices.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", storageError(err))
	}
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// SetProductActive shows or hides a product.
func (s *CatalogService) SetProductActive(ctx context.Context, id string, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("set product active: %w", storageError(err))
	}
	s.logger.InfoContext(ctx, "product visibility changed",
		slog.String("product_id", id),
		slog.Bool("active", active),
	)
	return nil
}

// Subscribe streams the local catalog after every change.
func (s *CatalogService) Subscribe(ctx context.Context) (<-chan []domain.Product, func()) {
	return s.repo.Subscribe(ctx)
}
