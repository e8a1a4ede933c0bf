package domain

import "time"

// Cart limits.
const (
	MaxQuantityPerItem = 100
	MaxLinesPerCart    = 50
)

// CartLine is one distinct product in the shopping cart.
type CartLine struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice int64     `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	ImageURL  string    `json:"image_url,omitempty"`
	Position  int64     `json:"position"`
	AddedAt   time.Time `json:"added_at"`
}

// LineTotal returns UnitPrice × Quantity.
func (l CartLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart is a point-in-time view of the session cart. Lines are kept in the
// order they were first added.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// NewCart wraps lines into a Cart. A nil slice becomes an empty cart.
func NewCart(lines []CartLine) Cart {
	if lines == nil {
		lines = []CartLine{}
	}
	return Cart{Lines: lines}
}

// Subtotal sums UnitPrice × Quantity over all lines.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.LineTotal()
	}
	return total
}

// ItemCount returns the number of units in the cart.
func (c Cart) ItemCount() int {
	var count int
	for _, l := range c.Lines {
		count += l.Quantity
	}
	return count
}

// Total is the amount charged at checkout. No tax is added.
func (c Cart) Total() int64 {
	return c.Subtotal()
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// FindLine returns the index of the line for productID, or -1.
func (c Cart) FindLine(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
