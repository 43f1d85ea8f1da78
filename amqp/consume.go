package amqp

import (
	"context"
	"encoding/json"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/spanlink/spanlink"
	"github.com/spanlink/spanlink/attr"
	"github.com/spanlink/spanlink/spanctx"
)

// Handle drains deliveries until the channel closes or ctx is done,
// decoding each body into an E and running fn inside a consumer span
// described by d.
//
// When the decoded event implements spanctx.Carrier and its embedded
// span coordinates are valid, the consumer span links back to the
// producer's span, whether or not the event also projects attributes
// through attr.Attributer; events without coordinates start a fresh,
// unlinked span. Handler errors are recorded on the span and the
// delivery is negatively acknowledged, requeued once.
func Handle[E any](ctx context.Context, deliveries <-chan amqp091.Delivery, d *spanlink.Descriptor, fn func(context.Context, *E) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case del, ok := <-deliveries:
			if !ok {
				return nil
			}
			handleDelivery(ctx, d, del, fn)
		}
	}
}

func handleDelivery[E any](ctx context.Context, d *spanlink.Descriptor, del amqp091.Delivery, fn func(context.Context, *E) error) {
	logger := zerolog.Ctx(ctx)

	var event E
	if err := json.Unmarshal(del.Body, &event); err != nil {
		logger.Warn().Err(err).
			Str("routing_key", del.RoutingKey).
			Msg("dropping undecodable delivery")
		nack(del, false)
		return
	}

	params := []attr.Attr{
		attr.String("messaging.system", "rabbitmq"),
		attr.String("messaging.routing_key", del.RoutingKey),
	}
	switch e := any(&event).(type) {
	case attr.Attributer:
		params = append(params, attr.Fields(e))
	case spanctx.Carrier:
		// Coordinates without attributes still produce the link.
		params = append(params, attr.Fields(carrierFields{e}))
	}

	err := spanlink.Traced(ctx, d, func(ctx context.Context) error {
		return fn(ctx, &event)
	}, params...)
	if err != nil {
		logger.Error().Err(err).
			Str("routing_key", del.RoutingKey).
			Msg("event handler failed")
		nack(del, !del.Redelivered)
		return
	}

	ack(del)
}

// carrierFields adapts an event that carries span coordinates but
// projects no attributes of its own, so link discovery still sees it.
type carrierFields struct {
	c spanctx.Carrier
}

func (w carrierFields) TraceAttributes() map[string]string {
	return nil
}

func (w carrierFields) TraceContext() (string, string, string) {
	return w.c.TraceContext()
}

// ack and nack tolerate auto-ack consumers, whose deliveries carry no
// acknowledger.

func ack(del amqp091.Delivery) {
	if del.Acknowledger == nil {
		return
	}
	_ = del.Ack(false)
}

func nack(del amqp091.Delivery, requeue bool) {
	if del.Acknowledger == nil {
		return
	}
	_ = del.Nack(false, requeue)
}
