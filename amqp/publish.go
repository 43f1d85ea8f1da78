// Package amqp carries traced events over RabbitMQ.
//
// AMQP does not propagate trace context on its own, so the publisher
// stamps the producer span's coordinates onto the outgoing event
// (when the event accepts them) and the consumer side starts its span
// with a link back to the producer's trace. Events without embedded
// coordinates are handled identically, minus the link.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/spanlink/spanlink"
	"github.com/spanlink/spanlink/attr"
	"github.com/spanlink/spanlink/spanctx"
)

// Channel is the publishing surface of an amqp091.Channel. It is an
// interface so publishers can be exercised without a broker.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Publisher publishes JSON-encoded events inside producer spans.
type Publisher struct {
	ch   Channel
	desc *spanlink.Descriptor
}

// NewPublisher creates a publisher over the given channel. Descriptor
// options may override the default "amqp.publish" producer span.
func NewPublisher(ch Channel, opts ...spanlink.DescriptorOption) *Publisher {
	dopts := append([]spanlink.DescriptorOption{
		spanlink.Name("amqp.publish"),
		spanlink.Kind(spanlink.SpanKindProducer),
	}, opts...)

	return &Publisher{
		ch:   ch,
		desc: spanlink.NewDescriptor("amqp", "publish", dopts...),
	}
}

// Publish sends the event to the exchange under the routing key.
//
// The publish runs inside a producer span; if the event implements
// spanctx.Setter, that span's coordinates are stamped onto it before
// encoding so downstream consumers can link back to this trace. If the
// event implements attr.Attributer its fields become span attributes.
func (p *Publisher) Publish(ctx context.Context, exchange, key string, event any) error {
	return spanlink.Traced(ctx, p.desc, func(ctx context.Context) error {
		if s, ok := event.(spanctx.Setter); ok {
			spanctx.Inject(ctx, s)
		}

		body, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("amqp: encode event: %w", err)
		}

		return p.ch.PublishWithContext(ctx, exchange, key, false, false, amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	},
		attr.String("messaging.system", "rabbitmq"),
		attr.String("messaging.destination", exchange),
		attr.String("messaging.routing_key", key),
		attr.Fields(asAttributer(event)),
	)
}

// asAttributer returns the event's Attributer side, or nil (absent).
func asAttributer(event any) attr.Attributer {
	a, _ := event.(attr.Attributer)
	return a
}
