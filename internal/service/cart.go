package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	"github.com/Catalina-leal/Huertohogarapp/internal/repository"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
)

// AddItemInput holds the parameters for adding a product to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	UnitPrice int64  `json:"unit_price" validate:"gte=0"`
	ImageURL  string `json:"image_url"`
	// Quantity defaults to 1 when zero.
	Quantity int `json:"quantity" validate:"gte=0"`
}

// UpdateQuantityInput holds the new quantity of a cart line. Zero or less
// removes the line.
type UpdateQuantityInput struct {
	Quantity int `json:"quantity"`
}

// CartService implements the business logic for the session cart.
// Mutations are serialized so a read-modify-write never interleaves.
type CartService struct {
	mu     sync.Mutex
	repo   repository.WatchedCartRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.WatchedCartRepository, logger *slog.Logger) *CartService {
	return &CartService{
		repo:   repo,
		logger: logger,
		now:    utcNow,
	}
}

// AddItem adds a product to the cart. If the product is already there its
// quantity grows; the name and price of the first add are kept.
func (s *CartService) AddItem(ctx context.Context, input AddItemInput) (domain.Cart, error) {
	input.ProductID = strings.TrimSpace(input.ProductID)
	if input.ProductID == "" {
		return domain.Cart{}, apperrors.InvalidInput("product id is required")
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Quantity < 0 {
		return domain.Cart{}, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if input.Quantity > domain.MaxQuantityPerItem {
		return domain.Cart{}, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", domain.MaxQuantityPerItem))
	}
	if input.UnitPrice < 0 {
		return domain.Cart{}, apperrors.InvalidInput("price must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.repo.List(ctx)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("read cart: %w", storageError(err))
	}
	cart := domain.NewCart(lines)

	var line domain.CartLine
	if idx := cart.FindLine(input.ProductID); idx >= 0 {
		line = cart.Lines[idx]
		newQty := line.Quantity + input.Quantity
		if newQty > domain.MaxQuantityPerItem {
			return cart, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", domain.MaxQuantityPerItem))
		}
		line.Quantity = newQty
		cart.Lines[idx] = line
	} else {
		if len(cart.Lines) >= domain.MaxLinesPerCart {
			return cart, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d products", domain.MaxLinesPerCart))
		}
		line = domain.CartLine{
			ProductID: input.ProductID,
			Name:      input.Name,
			UnitPrice: input.UnitPrice,
			Quantity:  input.Quantity,
			ImageURL:  input.ImageURL,
			Position:  nextPosition(cart.Lines),
			AddedAt:   s.now(),
		}
		cart.Lines = append(cart.Lines, line)
	}

	if err := s.repo.Upsert(ctx, line); err != nil {
		return domain.Cart{}, fmt.Errorf("save cart line: %w", storageError(err))
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("product_id", line.ProductID),
		slog.Int("quantity", line.Quantity),
	)

	return cart, nil
}

// SetQuantity replaces the quantity of a line. A quantity of zero or less
// removes the line like RemoveItem does; only a positive quantity for an
// absent product is NotFound.
func (s *CartService) SetQuantity(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	if productID == "" {
		return domain.Cart{}, apperrors.InvalidInput("product id is required")
	}
	if quantity > domain.MaxQuantityPerItem {
		return domain.Cart{}, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", domain.MaxQuantityPerItem))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.repo.List(ctx)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("read cart: %w", storageError(err))
	}
	cart := domain.NewCart(lines)

	idx := cart.FindLine(productID)

	// Same as RemoveItem: an absent line is left alone.
	if quantity <= 0 {
		if idx < 0 {
			return cart, nil
		}
		if err := s.repo.Delete(ctx, productID); err != nil {
			return domain.Cart{}, fmt.Errorf("delete cart line: %w", storageError(err))
		}
		cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
		s.logger.InfoContext(ctx, "cart line removed", slog.String("product_id", productID))
		return cart, nil
	}

	if idx < 0 {
		return cart, apperrors.NotFound("cart line", productID)
	}

	line := cart.Lines[idx]
	line.Quantity = quantity
	if err := s.repo.Upsert(ctx, line); err != nil {
		return domain.Cart{}, fmt.Errorf("save cart line: %w", storageError(err))
	}
	cart.Lines[idx] = line

	s.logger.InfoContext(ctx, "cart line quantity updated",
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)
	return cart, nil
}

// RemoveItem deletes the line for productID. Removing an absent product is
// not an error.
func (s *CartService) RemoveItem(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, productID); err != nil {
		return fmt.Errorf("delete cart line: %w", storageError(err))
	}
	s.logger.InfoContext(ctx, "cart line removed", slog.String("product_id", productID))
	return nil
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear cart: %w", storageError(err))
	}
	s.logger.InfoContext(ctx, "cart cleared")
	return nil
}

// Snapshot returns the current cart. A storage failure is logged and an
// empty cart returned.
func (s *CartService) Snapshot(ctx context.Context) domain.Cart {
	lines, err := s.repo.List(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read cart, showing it empty",
			slog.String("error", err.Error()),
		)
		return domain.NewCart(nil)
	}
	return domain.NewCart(lines)
}

// Subscribe streams cart snapshots, starting with the current one.
func (s *CartService) Subscribe(ctx context.Context) (<-chan domain.Cart, func()) {
	return s.repo.Subscribe(ctx)
}

// Drain reads the cart under the writer lock and hands its lines to fn.
// The cart is cleared only when fn succeeds. Unlike Snapshot a storage
// failure is returned, so an unreadable cart never becomes an empty one.
func (s *CartService) Drain(ctx context.Context, fn func(lines []domain.CartLine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("read cart: %w", storageError(err))
	}

	if err := fn(lines); err != nil {
		return err
	}

	if err := s.repo.DeleteAll(ctx); err != nil {
		// fn has already committed its work; the stale lines stay visible
		// until the next successful clear.
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func nextPosition(lines []domain.CartLine) int64 {
	var maxPos int64
	for _, l := range lines {
		if l.Position > maxPos {
			maxPos = l.Position
		}
	}
	return maxPos + 1
}
