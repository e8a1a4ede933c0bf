package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	pkgkafka "github.com/Catalina-leal/Huertohogarapp/pkg/kafka"
	"github.com/Catalina-leal/Huertohogarapp/pkg/logger"
)

// Kafka topics for order domain events.
var (
	TopicOrderCreated       = pkgkafka.Topic("order", "created")
	TopicOrderStatusChanged = pkgkafka.Topic("order", "status_changed")
)

// Aggregate type constant.
const AggregateTypeOrder = "order"

// SourceStorefront identifies events originating from this process.
const SourceStorefront = "storefront"

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	ID              string          `json:"id"`
	UserEmail       string          `json:"user_email"`
	Status          string          `json:"status"`
	Items           []OrderItemData `json:"items"`
	TotalAmount     int64           `json:"total_amount"`
	ShippingAddress string          `json:"shipping_address"`
	Notes           string          `json:"notes,omitempty"`
}

// OrderItemData is the event payload for an order item.
type OrderItemData struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	TotalPrice  int64  `json:"total_price"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID        string `json:"order_id"`
	OldStatus      string `json:"old_status"`
	NewStatus      string `json:"new_status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// Publisher sends an event to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes order domain events. A Producer built with a nil
// Publisher drops every event, which is how the storefront runs without Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Enabled reports whether events are actually sent anywhere.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

// PublishOrderCreated publishes an order.created event with the full order snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	if !p.Enabled() {
		return nil
	}

	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		}
	}

	data := OrderCreatedData{
		ID:              order.ID,
		UserEmail:       order.UserEmail,
		Status:          order.Status.String(),
		Items:           items,
		TotalAmount:     order.TotalAmount,
		ShippingAddress: order.ShippingAddress,
		Notes:           order.Notes,
	}

	return p.publish(ctx, TopicOrderCreated, order.ID, data)
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID string, oldStatus, newStatus domain.OrderStatus, trackingNumber string) error {
	if !p.Enabled() {
		return nil
	}

	data := OrderStatusChangedData{
		OrderID:        orderID,
		OldStatus:      oldStatus.String(),
		NewStatus:      newStatus.String(),
		TrackingNumber: trackingNumber,
	}
	return p.publish(ctx, TopicOrderStatusChanged, orderID, data)
}

func (p *Producer) publish(ctx context.Context, topic, orderID string, data any) error {
	evt, err := pkgkafka.NewEvent(topic, orderID, AggregateTypeOrder, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published order event",
		slog.String("topic", topic),
		slog.String("order_id", orderID),
	)
	return nil
}
