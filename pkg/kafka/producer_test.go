package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Catalina-leal/Huertohogarapp/pkg/logger"
)

// --- Fake writer ---

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	return headerCarrier{headers: &msg.Headers}.Get(key)
}

// --- Event ---

func TestNewEvent(t *testing.T) {
	type payload struct {
		OrderID string `json:"order_id"`
		Total   int64  `json:"total"`
	}

	e, err := NewEvent("order.created", "o-1", "order", "storefront", payload{OrderID: "o-1", Total: 5990})
	require.NoError(t, err)
	assert.NotEmpty(t, e.EventID)
	assert.Equal(t, 1, e.Version)
	assert.WithinDuration(t, time.Now().UTC(), e.Timestamp, 2*time.Second)

	var got payload
	require.NoError(t, e.UnmarshalData(&got))
	assert.Equal(t, int64(5990), got.Total)
}

func TestNewEvent_Unserializable(t *testing.T) {
	_, err := NewEvent("x", "a", "t", "s", make(chan int))
	assert.Error(t, err)
}

func TestEvent_Builders(t *testing.T) {
	e := (&Event{}).WithCorrelationID("req-1").WithMetadata("status", "SHIPPED")
	assert.Equal(t, "req-1", e.CorrelationID)
	assert.Equal(t, "SHIPPED", e.Metadata["status"])

	raw, err := e.Marshal()
	require.NoError(t, err)
	back, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "req-1", back.CorrelationID)
}

func TestNewEvent_Envelope(t *testing.T) {
	e, err := NewEvent("order.created", "o-1", "order", "storefront", nil)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, e.Version)
	assert.NotEmpty(t, e.EventID)
	assert.Zero(t, e.Timestamp.Nanosecond()%int(time.Millisecond))
}

func TestUnmarshalEvent_Invalid(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{"))
	assert.ErrorContains(t, err, "decode event")
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "huertohogar.order.status_changed", Topic("order", "status_changed"))
}

// --- Producer ---

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, logger.Discard())

	e, err := NewEvent("order.created", "o-1", "order", "storefront", map[string]string{"status": "CONFIRMED"})
	require.NoError(t, err)
	e.WithCorrelationID("req-9").WithMetadata("user_email", "ana@example.com")

	require.NoError(t, p.Publish(context.Background(), Topic("order", "created"), e))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "huertohogar.order.created", msg.Topic)
	assert.Equal(t, []byte("o-1"), msg.Key)
	assert.Equal(t, "order.created", header(msg, "event_type"))
	assert.Equal(t, "req-9", header(msg, "correlation_id"))
	assert.Equal(t, "ana@example.com", header(msg, "user_email"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, e.EventID, decoded.EventID)
}

func TestProducer_PublishInjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &fakeWriter{}
	e, _ := NewEvent("order.created", "o-1", "order", "storefront", nil)
	require.NoError(t, newProducer(w, nil, logger.Discard()).Publish(ctx, "t", e))

	assert.Contains(t, header(w.msgs[0], "traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newProducer(w, nil, logger.Discard())

	e, _ := NewEvent("order.created", "o-1", "order", "storefront", nil)
	err := p.Publish(context.Background(), "t", e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestProducer_PingWithoutBrokers(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, logger.Discard())
	assert.Error(t, p.Ping(context.Background()))
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newProducer(w, nil, logger.Discard()).Close())
	assert.True(t, w.closed)
}

func TestHeaderCarrier_SetOverwrites(t *testing.T) {
	var headers []kafka.Header
	c := headerCarrier{headers: &headers}
	c.Set("a", "1")
	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "2", c.Get("a"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
}
