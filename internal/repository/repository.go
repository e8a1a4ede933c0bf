package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
)

// CartRepository defines persistence for the session cart lines.
type CartRepository interface {
	// List returns every cart line ordered by Position.
	List(ctx context.Context) ([]domain.CartLine, error)

	// Get returns the line for productID or an error wrapping ErrNotFound.
	Get(ctx context.Context, productID string) (*domain.CartLine, error)

	// Upsert inserts or replaces the line keyed by ProductID.
	Upsert(ctx context.Context, line domain.CartLine) error

	// Delete removes the line for productID. Deleting a missing line is not an error.
	Delete(ctx context.Context, productID string) error

	// DeleteAll removes every line.
	DeleteAll(ctx context.Context) error
}

// ProductFilter narrows a product listing. Zero values match everything.
type ProductFilter struct {
	Category    string
	Query       string
	OnlyActive  bool
	OnlyOrganic bool
}

// Matches reports whether p passes the filter. Backends that cannot push a
// condition into their query use it to filter in memory.
func (f ProductFilter) Matches(p *domain.Product) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.OnlyActive && !p.IsActive {
		return false
	}
	if f.OnlyOrganic && !p.IsOrganic {
		return false
	}
	if f.Query != "" && !containsFold(p.Name, f.Query) && !containsFold(p.Description, f.Query) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// ProductRepository defines persistence for catalog products.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Upsert(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
}

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	UserEmail *string
	Status    *domain.OrderStatus
	// Limit caps the result; zero means no limit.
	Limit int
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts a new order and its items atomically. Item IDs are
	// assigned by the store and written back into order.Items.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its unique identifier, including items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching the filter, newest first, including items.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)

	// Items returns the items of one order.
	Items(ctx context.Context, orderID string) ([]domain.OrderItem, error)

	// UpdateStatus changes the status and tracking number of an order.
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, trackingNumber string, updatedAt time.Time) error
}

// PreferencesRepository is a small key/value store for session preferences.
type PreferencesRepository interface {
	// Get returns the value for key and whether it was set.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Watchable is implemented by stores that push a fresh snapshot to
// subscribers after every write.
type Watchable[T any] interface {
	Subscribe(ctx context.Context) (<-chan T, func())
}

// WatchedCartRepository is a cart store with a snapshot stream.
type WatchedCartRepository interface {
	CartRepository
	Watchable[domain.Cart]
}

// WatchedProductRepository is a product store with a catalog stream.
type WatchedProductRepository interface {
	ProductRepository
	Watchable[[]domain.Product]
}

// WatchedOrderRepository is an order store with a stream of all orders.
type WatchedOrderRepository interface {
	OrderRepository
	Watchable[[]domain.Order]
}
