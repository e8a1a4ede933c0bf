package domain

import "time"

// Product categories.
const (
	CategoryFreshFruit      = "FRUTAS_FRESCAS"
	CategoryOrganicVeg      = "VERDURAS_ORGANICAS"
	CategoryOrganicProducts = "PRODUCTOS_ORGANICOS"
	CategoryDairy           = "PRODUCTOS_LACTEOS"
)

// Product is a catalog entry.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	OldPrice    *int64    `json:"old_price,omitempty"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url,omitempty"`
	Origin      string    `json:"origin,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	IsOrganic   bool      `json:"is_organic"`
	IsActive    bool      `json:"is_active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Categories returns every known product category.
func Categories() []string {
	return []string{
		CategoryFreshFruit,
		CategoryOrganicVeg,
		CategoryOrganicProducts,
		CategoryDairy,
	}
}

// IsValidCategory checks if a category string is known.
func IsValidCategory(category string) bool {
	for _, c := range Categories() {
		if c == category {
			return true
		}
	}
	return false
}

// OnSale reports whether the product carries a higher previous price.
func (p *Product) OnSale() bool {
	return p.OldPrice != nil && *p.OldPrice > p.Price
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.Stock > 0
}
