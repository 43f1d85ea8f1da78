package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/spanlink/spanlink"
	"github.com/spanlink/spanlink/amqp"
)

// consumers drive the order pipeline: each queue handler advances the
// order to its next status, which publishes the next event, until the
// order is delivered. Consumer spans link back to the publishing trace
// through the coordinates embedded in each event.
type consumers struct {
	service *OrderService

	orderDesc        *spanlink.Descriptor
	paymentDesc      *spanlink.Descriptor
	shippingDesc     *spanlink.Descriptor
	notificationDesc *spanlink.Descriptor
}

func newConsumers(service *OrderService) *consumers {
	desc := func(method, name string) *spanlink.Descriptor {
		return spanlink.NewDescriptor("OrderEventConsumer", method,
			spanlink.Name(name),
			spanlink.Kind(spanlink.SpanKindConsumer),
		)
	}

	return &consumers{
		service:          service,
		orderDesc:        desc("HandleOrderCreated", "order.queue consume"),
		paymentDesc:      desc("HandlePayment", "payment.queue consume"),
		shippingDesc:     desc("HandleShipping", "shipping.queue consume"),
		notificationDesc: desc("HandleNotification", "notification.queue consume"),
	}
}

// start begins consuming from every pipeline queue. Each consumer runs
// in its own goroutine until ctx is cancelled or its channel closes.
func (c *consumers) start(ctx context.Context, ch *amqp091.Channel) error {
	queues := []struct {
		queue string
		run   func(context.Context, <-chan amqp091.Delivery) error
	}{
		{OrderQueue, func(ctx context.Context, d <-chan amqp091.Delivery) error {
			return amqp.Handle(ctx, d, c.orderDesc, c.handleOrderCreated)
		}},
		{PaymentQueue, func(ctx context.Context, d <-chan amqp091.Delivery) error {
			return amqp.Handle(ctx, d, c.paymentDesc, c.handlePayment)
		}},
		{ShippingQueue, func(ctx context.Context, d <-chan amqp091.Delivery) error {
			return amqp.Handle(ctx, d, c.shippingDesc, c.handleShipping)
		}},
		{NotificationQueue, func(ctx context.Context, d <-chan amqp091.Delivery) error {
			return amqp.Handle(ctx, d, c.notificationDesc, c.handleNotification)
		}},
	}

	for _, q := range queues {
		deliveries, err := ch.Consume(q.queue, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", q.queue, err)
		}

		go func(queue string, run func(context.Context, <-chan amqp091.Delivery) error) {
			if err := run(ctx, deliveries); err != nil && ctx.Err() == nil {
				zerolog.Ctx(ctx).Error().Err(err).Str("queue", queue).Msg("consumer stopped")
			}
		}(q.queue, q.run)
	}
	return nil
}

// handleOrderCreated starts payment processing for a fresh order.
func (c *consumers) handleOrderCreated(ctx context.Context, event *OrderEvent) error {
	simulateWork(50, 150)
	spanlink.AddEvent(ctx, "payment.initiated", map[string]string{"order.id": event.OrderID})

	_, err := c.service.UpdateStatus(ctx, event.OrderID, StatusPaymentProcessing)
	return err
}

// handlePayment confirms in-flight payments and ships confirmed ones.
func (c *consumers) handlePayment(ctx context.Context, event *OrderEvent) error {
	simulateWork(100, 300)

	switch event.EventType {
	case EventPaymentProcessing:
		spanlink.AddEvent(ctx, "payment.authorized", map[string]string{"order.id": event.OrderID})
		_, err := c.service.UpdateStatus(ctx, event.OrderID, StatusPaymentConfirmed)
		return err
	case EventPaymentConfirmed:
		_, err := c.service.UpdateStatus(ctx, event.OrderID, StatusShipped)
		return err
	default:
		zerolog.Ctx(ctx).Warn().
			Str("event_type", string(event.EventType)).
			Msg("unexpected event on payment queue")
		return nil
	}
}

// handleShipping completes delivery for shipped orders.
func (c *consumers) handleShipping(ctx context.Context, event *OrderEvent) error {
	simulateWork(100, 250)
	spanlink.AddEvent(ctx, "shipment.dispatched", map[string]string{"order.id": event.OrderID})

	_, err := c.service.UpdateStatus(ctx, event.OrderID, StatusDelivered)
	return err
}

// handleNotification simulates sending the customer email.
func (c *consumers) handleNotification(ctx context.Context, event *OrderEvent) error {
	simulateWork(20, 80)

	spanlink.AddEvent(ctx, "notification.sent", map[string]string{
		"order.id":          event.OrderID,
		"notification.type": "email",
	})
	zerolog.Ctx(ctx).Info().
		Str("order_id", event.OrderID).
		Str("event_type", string(event.EventType)).
		Msg("notification dispatched")
	return nil
}

// simulateWork sleeps a random duration so demo traces show realistic
// span widths.
func simulateWork(minMillis, maxMillis int) {
	time.Sleep(time.Duration(minMillis+rand.Intn(maxMillis-minMillis)) * time.Millisecond)
}
