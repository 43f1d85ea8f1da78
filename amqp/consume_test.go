package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/spanlink/spanlink"
)

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(uint64, bool) error {
	return nil
}

func delivery(t *testing.T, event any, ack amqp091.Acknowledger) amqp091.Delivery {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp091.Delivery{
		Acknowledger: ack,
		RoutingKey:   "order.created",
		Body:         body,
	}
}

func TestHandleLinksConsumerSpan(t *testing.T) {
	sr, tp := newRecorder(t)

	producer := &orderEvent{
		EventID:    "E-1",
		EventType:  "ORDER_CREATED",
		OrderID:    "O-1",
		TraceID:    "4bf92f3577b34da6a3ce929d0e0e4736",
		SpanID:     "00f067aa0ba902b7",
		TraceFlags: "01",
	}
	ack := &fakeAcknowledger{}
	del := delivery(t, producer, ack)

	d := spanlink.NewDescriptor("OrderEventConsumer", "HandleOrderEvent",
		spanlink.Kind(spanlink.SpanKindConsumer),
		spanlink.WithTracerProvider(tp),
	)

	var got *orderEvent
	handleDelivery(context.Background(), d, del, func(_ context.Context, e *orderEvent) error {
		got = e
		return nil
	})

	require.NotNil(t, got)
	assert.Equal(t, "O-1", got.OrderID)
	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	assert.Equal(t, trace.SpanKindConsumer, span.SpanKind())
	require.Len(t, span.Links(), 1)
	assert.Equal(t, producer.TraceID, span.Links()[0].SpanContext.TraceID().String())
	assert.Equal(t, producer.SpanID, span.Links()[0].SpanContext.SpanID().String())
	assert.False(t, span.Parent().IsValid(), "linked span is not parented to the producer")
}

// bareEvent carries span coordinates but projects no attributes.
type bareEvent struct {
	OrderID    string `json:"orderId"`
	TraceID    string `json:"traceId,omitempty"`
	SpanID     string `json:"spanId,omitempty"`
	TraceFlags string `json:"traceFlags,omitempty"`
}

func (e *bareEvent) TraceContext() (string, string, string) {
	return e.TraceID, e.SpanID, e.TraceFlags
}

func TestHandleLinksCarrierOnlyEvent(t *testing.T) {
	sr, tp := newRecorder(t)

	producer := &bareEvent{
		OrderID:    "O-9",
		TraceID:    "4bf92f3577b34da6a3ce929d0e0e4736",
		SpanID:     "00f067aa0ba902b7",
		TraceFlags: "01",
	}
	ack := &fakeAcknowledger{}
	del := delivery(t, producer, ack)

	d := spanlink.NewDescriptor("OrderEventConsumer", "HandleOrderEvent",
		spanlink.Kind(spanlink.SpanKindConsumer),
		spanlink.WithTracerProvider(tp),
	)

	handleDelivery(context.Background(), d, del, func(context.Context, *bareEvent) error {
		return nil
	})

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	require.Len(t, span.Links(), 1, "coordinates alone are enough for the link")
	assert.Equal(t, producer.TraceID, span.Links()[0].SpanContext.TraceID().String())
	assert.Equal(t, producer.SpanID, span.Links()[0].SpanContext.SpanID().String())
	assert.True(t, ack.acked)
}

func TestHandleUnlinkedWithoutCoordinates(t *testing.T) {
	sr, tp := newRecorder(t)

	ack := &fakeAcknowledger{}
	del := delivery(t, &orderEvent{EventID: "E-2", EventType: "ORDER_CREATED"}, ack)

	d := spanlink.NewDescriptor("OrderEventConsumer", "HandleOrderEvent",
		spanlink.WithTracerProvider(tp),
	)

	handleDelivery(context.Background(), d, del, func(context.Context, *orderEvent) error {
		return nil
	})

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Empty(t, spans[0].Links())
	assert.True(t, ack.acked)
}

func TestHandleHandlerErrorNacksWithRequeue(t *testing.T) {
	_, tp := newRecorder(t)

	ack := &fakeAcknowledger{}
	del := delivery(t, &orderEvent{EventID: "E-3"}, ack)

	d := spanlink.NewDescriptor("OrderEventConsumer", "HandleOrderEvent",
		spanlink.WithTracerProvider(tp),
	)

	handleDelivery(context.Background(), d, del, func(context.Context, *orderEvent) error {
		return errors.New("payment backend unavailable")
	})

	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue, "first failure requeues")
}

func TestHandleRedeliveredFailureDropsMessage(t *testing.T) {
	_, tp := newRecorder(t)

	ack := &fakeAcknowledger{}
	del := delivery(t, &orderEvent{EventID: "E-4"}, ack)
	del.Redelivered = true

	d := spanlink.NewDescriptor("OrderEventConsumer", "HandleOrderEvent",
		spanlink.WithTracerProvider(tp),
	)

	handleDelivery(context.Background(), d, del, func(context.Context, *orderEvent) error {
		return errors.New("still failing")
	})

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "redelivered failures are not requeued again")
}

func TestHandleUndecodableBody(t *testing.T) {
	sr, tp := newRecorder(t)

	ack := &fakeAcknowledger{}
	del := amqp091.Delivery{
		Acknowledger: ack,
		RoutingKey:   "order.created",
		Body:         []byte("not json"),
	}

	d := spanlink.NewDescriptor("OrderEventConsumer", "HandleOrderEvent",
		spanlink.WithTracerProvider(tp),
	)

	var called bool
	handleDelivery(context.Background(), d, del, func(context.Context, *orderEvent) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "poison messages are not requeued")
	assert.Empty(t, sr.Ended(), "no span for messages that never decode")
}

func TestHandleDrainsUntilChannelCloses(t *testing.T) {
	_, tp := newRecorder(t)

	d := spanlink.NewDescriptor("OrderEventConsumer", "HandleOrderEvent",
		spanlink.WithTracerProvider(tp),
	)

	deliveries := make(chan amqp091.Delivery, 2)
	deliveries <- delivery(t, &orderEvent{EventID: "E-5"}, nil)
	deliveries <- delivery(t, &orderEvent{EventID: "E-6"}, nil)
	close(deliveries)

	var seen []string
	err := Handle(context.Background(), deliveries, d, func(_ context.Context, e *orderEvent) error {
		seen = append(seen, e.EventID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"E-5", "E-6"}, seen)
}

func TestHandleStopsOnContextCancel(t *testing.T) {
	_, tp := newRecorder(t)

	d := spanlink.NewDescriptor("OrderEventConsumer", "HandleOrderEvent",
		spanlink.WithTracerProvider(tp),
	)

	ctx, cancel := context.WithCancel(context.Background())
	deliveries := make(chan amqp091.Delivery)

	done := make(chan error, 1)
	go func() {
		done <- Handle(ctx, deliveries, d, func(context.Context, *orderEvent) error {
			return nil
		})
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Handle did not stop after context cancellation")
	}
}
