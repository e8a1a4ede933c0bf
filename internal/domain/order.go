package domain

import (
	"fmt"
	"strings"
	"time"
)

// Order is a placed checkout. Only Status, TrackingNumber and UpdatedAt
// change after creation.
type Order struct {
	ID              string      `json:"id"`
	UserEmail       string      `json:"user_email"`
	Status          OrderStatus `json:"status"`
	Items           []OrderItem `json:"items"`
	TotalAmount     int64       `json:"total_amount"`
	ShippingAddress string      `json:"shipping_address"`
	DeliveryDate    *time.Time  `json:"delivery_date,omitempty"`
	TrackingNumber  string      `json:"tracking_number,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ItemsTotal sums the stored TotalPrice of every item.
func (o *Order) ItemsTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.TotalPrice
	}
	return total
}

// ShortID is the first eight characters of the order id, used in
// customer-facing messages.
func (o *Order) ShortID() string {
	return ShortOrderID(o.ID)
}

// ShortOrderID truncates id to eight characters.
func ShortOrderID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ComposeAddress joins the address parts as "address, city, region",
// skipping blank parts.
func ComposeAddress(address, city, region string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{address, city, region} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// TrackingNumberAt builds the tracking number assigned when an order ships.
func TrackingNumberAt(t time.Time) string {
	return fmt.Sprintf("TRACK-%d", t.UnixMilli())
}
