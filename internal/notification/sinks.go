package notification

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/Catalina-leal/Huertohogarapp/pkg/kafka"
)

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

// Notify logs n at info level.
func (s *LogSink) Notify(ctx context.Context, n Notification) error {
	s.logger.InfoContext(ctx, "order notification",
		slog.String("order_id", n.OrderID),
		slog.String("user_email", n.UserEmail),
		slog.String("status", n.Status.String()),
		slog.String("title", n.Title),
		slog.String("message", n.Message),
	)
	return nil
}

// TopicOrderNotification carries shopper-facing order notifications.
var TopicOrderNotification = pkgkafka.Topic("notification", "order_update")

// Publisher sends an event to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// KafkaSink publishes notifications for a downstream push service.
type KafkaSink struct {
	kafka Publisher
}

// NewKafkaSink creates a Kafka sink.
func NewKafkaSink(kafka Publisher) *KafkaSink {
	return &KafkaSink{kafka: kafka}
}

func (s *KafkaSink) Name() string { return "kafka" }

// Notify publishes n keyed by its order id.
func (s *KafkaSink) Notify(ctx context.Context, n Notification) error {
	evt, err := pkgkafka.NewEvent(TopicOrderNotification, n.OrderID, "notification", "storefront", n)
	if err != nil {
		return fmt.Errorf("create notification event: %w", err)
	}
	if n.UserEmail != "" {
		evt.WithMetadata("user_email", n.UserEmail)
	}
	if err := s.kafka.Publish(ctx, TopicOrderNotification, evt); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
