// Package notification delivers order status updates to the shopper
// through pluggable sinks.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
)

// Titles used for order notifications.
const (
	TitleOrderUpdate    = "Order update"
	TitleOrderConfirmed = "Order confirmed"
)

// Notification is one message about an order.
type Notification struct {
	OrderID   string             `json:"order_id"`
	UserEmail string             `json:"user_email,omitempty"`
	Status    domain.OrderStatus `json:"status"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	CreatedAt time.Time          `json:"created_at"`
}

// Sink delivers notifications to one channel.
type Sink interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// ForStatus builds the notification sent when order moves to status. An
// empty title falls back to TitleOrderUpdate.
func ForStatus(orderID, userEmail string, status domain.OrderStatus, title string) Notification {
	if title == "" {
		title = TitleOrderUpdate
	}
	return Notification{
		OrderID:   orderID,
		UserEmail: userEmail,
		Status:    status,
		Title:     title,
		Message:   MessageFor(orderID, status),
		CreatedAt: time.Now().UTC(),
	}
}

// MessageFor returns the shopper-facing text for a status change.
func MessageFor(orderID string, status domain.OrderStatus) string {
	short := domain.ShortOrderID(orderID)
	switch status {
	case domain.StatusPending:
		return fmt.Sprintf("Your order #%s is pending confirmation", short)
	case domain.StatusConfirmed:
		return fmt.Sprintf("Your order #%s has been confirmed", short)
	case domain.StatusPreparing:
		return fmt.Sprintf("Your order #%s is being prepared", short)
	case domain.StatusShipped:
		return fmt.Sprintf("Your order #%s has been shipped", short)
	case domain.StatusInTransit:
		return fmt.Sprintf("Your order #%s is on its way", short)
	case domain.StatusDelivered:
		return fmt.Sprintf("Your order #%s has been delivered", short)
	case domain.StatusCancelled:
		return fmt.Sprintf("Your order #%s has been cancelled", short)
	default:
		return fmt.Sprintf("Your order #%s is now %s", short, status)
	}
}
