package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var deliveries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_notifications_total",
		Help: "Order notifications handled by the dispatcher, by sink and result",
	},
	[]string{"sink", "result"},
)

// DefaultQueueSize is the dispatcher buffer used when none is given.
const DefaultQueueSize = 128

// Dispatcher fans notifications out to its sinks on a background worker.
// Notify never blocks the caller and never fails it: when the queue is
// full the notification is dropped and logged.
type Dispatcher struct {
	sinks       []Sink
	queue       chan queued
	sendTimeout time.Duration
	logger      *slog.Logger

	mu     sync.RWMutex
	closed bool
}

type queued struct {
	ctx context.Context
	n   Notification
}

// NewDispatcher creates a dispatcher for sinks with room for queueSize
// pending notifications.
func NewDispatcher(sinks []Sink, queueSize int, sendTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Dispatcher{
		sinks:       sinks,
		queue:       make(chan queued, queueSize),
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Notify queues n for delivery.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		deliveries.WithLabelValues("dispatcher", "dropped").Inc()
		d.logger.WarnContext(ctx, "notification dropped after shutdown", slog.String("order_id", n.OrderID))
		return
	}

	select {
	case d.queue <- queued{ctx: context.WithoutCancel(ctx), n: n}:
	default:
		deliveries.WithLabelValues("dispatcher", "dropped").Inc()
		d.logger.WarnContext(ctx, "notification queue full, dropping",
			slog.String("order_id", n.OrderID),
			slog.String("status", n.Status.String()),
		)
	}
}

// Run delivers queued notifications until ctx is done, then delivers what
// is still queued and returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case item := <-d.queue:
			d.deliver(item)
		case <-ctx.Done():
			d.close()
			for item := range d.queue {
				d.deliver(item)
			}
			return nil
		}
	}
}

func (d *Dispatcher) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
}

func (d *Dispatcher) deliver(item queued) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(item.ctx, d.sendTimeout)
		err := sink.Notify(ctx, item.n)
		cancel()

		if err != nil {
			deliveries.WithLabelValues(sink.Name(), "error").Inc()
			d.logger.ErrorContext(item.ctx, "notification delivery failed",
				slog.String("sink", sink.Name()),
				slog.String("order_id", item.n.OrderID),
				slog.String("error", err.Error()),
			)
			continue
		}
		deliveries.WithLabelValues(sink.Name(), "ok").Inc()
	}
}
