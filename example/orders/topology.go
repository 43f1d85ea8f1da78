package main

import (
	amqp091 "github.com/rabbitmq/amqp091-go"
)

// Exchange and queue topology for the order pipeline. Order lifecycle
// events fan out from order.exchange by routing key; notifications get
// their own exchange so email traffic never competes with the
// pipeline queues.
const (
	OrderExchange        = "order.exchange"
	NotificationExchange = "notification.exchange"

	OrderQueue        = "order.queue"
	PaymentQueue      = "payment.queue"
	ShippingQueue     = "shipping.queue"
	NotificationQueue = "notification.queue"

	OrderCreatedKey      = "order.created"
	OrderCancelledKey    = "order.cancelled"
	PaymentProcessingKey = "payment.processing"
	PaymentConfirmedKey  = "payment.confirmed"
	OrderShippedKey      = "order.shipped"
	NotificationEmailKey = "notification.email"
)

// declareTopology declares the exchanges, queues, and bindings the
// service consumes from. Declarations are idempotent on the broker.
func declareTopology(ch *amqp091.Channel) error {
	for _, exchange := range []string{OrderExchange, NotificationExchange} {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
	}

	bindings := []struct {
		queue    string
		key      string
		exchange string
	}{
		{OrderQueue, OrderCreatedKey, OrderExchange},
		{PaymentQueue, PaymentProcessingKey, OrderExchange},
		{PaymentQueue, PaymentConfirmedKey, OrderExchange},
		{ShippingQueue, OrderShippedKey, OrderExchange},
		{NotificationQueue, NotificationEmailKey, NotificationExchange},
	}

	for _, b := range bindings {
		if _, err := ch.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
			return err
		}
		if err := ch.QueueBind(b.queue, b.key, b.exchange, false, nil); err != nil {
			return err
		}
	}
	return nil
}
