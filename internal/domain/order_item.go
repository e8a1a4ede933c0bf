package domain

// OrderItem is a line of a placed order. ProductName and UnitPrice are
// copies taken at checkout, not live catalog references.
type OrderItem struct {
	ID          int64  `json:"id"`
	OrderID     string `json:"order_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	TotalPrice  int64  `json:"total_price"`
}

// NewOrderItem builds the item for a cart line, storing its line total.
func NewOrderItem(orderID string, line CartLine) OrderItem {
	return OrderItem{
		OrderID:     orderID,
		ProductID:   line.ProductID,
		ProductName: line.Name,
		Quantity:    line.Quantity,
		UnitPrice:   line.UnitPrice,
		TotalPrice:  line.LineTotal(),
	}
}

// LineTotal returns UnitPrice × Quantity.
func (i *OrderItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}
