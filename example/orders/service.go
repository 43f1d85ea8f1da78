package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/spanlink/spanlink"
	"github.com/spanlink/spanlink/amqp"
	"github.com/spanlink/spanlink/attr"
)

// eventForStatus maps a lifecycle status to the event it publishes and
// the routing key it travels under. Statuses without an entry do not
// publish.
var eventForStatus = map[OrderStatus]struct {
	eventType EventType
	key       string
}{
	StatusPending:           {EventOrderCreated, OrderCreatedKey},
	StatusPaymentProcessing: {EventPaymentProcessing, PaymentProcessingKey},
	StatusPaymentConfirmed:  {EventPaymentConfirmed, PaymentConfirmedKey},
	StatusShipped:           {EventOrderShipped, OrderShippedKey},
}

// OrderService owns the order lifecycle: persistence, state
// transitions, and the events each transition publishes.
type OrderService struct {
	repo      *OrderRepository
	publisher *amqp.Publisher

	createDesc *spanlink.Descriptor
	getDesc    *spanlink.Descriptor
	listDesc   *spanlink.Descriptor
	updateDesc *spanlink.Descriptor
	cancelDesc *spanlink.Descriptor
}

func NewOrderService(repo *OrderRepository, publisher *amqp.Publisher) *OrderService {
	return &OrderService{
		repo:       repo,
		publisher:  publisher,
		createDesc: spanlink.NewDescriptor("OrderService", "CreateOrder", spanlink.Name("order.create")),
		getDesc:    spanlink.NewDescriptor("OrderService", "GetOrder"),
		listDesc:   spanlink.NewDescriptor("OrderService", "ListOrders"),
		updateDesc: spanlink.NewDescriptor("OrderService", "UpdateStatus", spanlink.Name("order.update_status")),
		cancelDesc: spanlink.NewDescriptor("OrderService", "CancelOrder", spanlink.Name("order.cancel")),
	}
}

// CreateOrder persists a new pending order and publishes ORDER_CREATED.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	return spanlink.TracedResult(ctx, s.createDesc, func(ctx context.Context) (*Order, error) {
		now := time.Now().UTC()
		order := &Order{
			ID:            uuid.NewString(),
			CustomerID:    req.CustomerID,
			CustomerEmail: req.CustomerEmail,
			Items:         req.Items,
			TotalAmount:   totalAmount(req.Items),
			Status:        StatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := s.repo.Save(ctx, order); err != nil {
			return nil, err
		}

		spanlink.AddAttributer(ctx, order)
		spanlink.AddEvent(ctx, "order.persisted", map[string]string{"order.id": order.ID})

		s.publishTransition(ctx, order)
		return order, nil
	}, attr.String("order.customer_id", req.CustomerID), attr.Int("order.items_count", len(req.Items)))
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*Order, error) {
	return spanlink.TracedResult(ctx, s.getDesc, func(ctx context.Context) (*Order, error) {
		return s.repo.FindByID(ctx, id)
	}, attr.String("order.id", id))
}

func (s *OrderService) ListOrders(ctx context.Context, customerID string) ([]Order, error) {
	return spanlink.TracedResult(ctx, s.listDesc, func(ctx context.Context) ([]Order, error) {
		if customerID != "" {
			return s.repo.FindByCustomer(ctx, customerID)
		}
		return s.repo.FindAll(ctx)
	}, attr.String("order.customer_id", customerID))
}

// UpdateStatus transitions the order and publishes the matching event.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status OrderStatus) (*Order, error) {
	return spanlink.TracedResult(ctx, s.updateDesc, func(ctx context.Context) (*Order, error) {
		order, err := s.repo.UpdateStatus(ctx, id, status)
		if err != nil {
			return nil, err
		}

		spanlink.AddAttributer(ctx, order)
		s.publishTransition(ctx, order)
		return order, nil
	}, attr.String("order.id", id), attr.String("order.status", string(status)))
}

// CancelOrder cancels the order and publishes ORDER_CANCELLED plus a
// customer notification.
func (s *OrderService) CancelOrder(ctx context.Context, id string) (*Order, error) {
	return spanlink.TracedResult(ctx, s.cancelDesc, func(ctx context.Context) (*Order, error) {
		order, err := s.repo.UpdateStatus(ctx, id, StatusCancelled)
		if err != nil {
			return nil, err
		}

		s.publish(ctx, OrderExchange, OrderCancelledKey, s.event(order, EventOrderCancelled))
		s.publish(ctx, NotificationExchange, NotificationEmailKey, s.event(order, EventOrderCancelled))
		return order, nil
	}, attr.String("order.id", id))
}

// publishTransition emits the event mapped to the order's new status.
// Publish failures are logged, not returned: the state change is
// already durable and must not be rolled back by a flaky broker.
func (s *OrderService) publishTransition(ctx context.Context, order *Order) {
	m, ok := eventForStatus[order.Status]
	if !ok {
		return
	}
	s.publish(ctx, OrderExchange, m.key, s.event(order, m.eventType))

	if order.Status == StatusShipped {
		s.publish(ctx, NotificationExchange, NotificationEmailKey, s.event(order, EventOrderShipped))
	}
}

func (s *OrderService) publish(ctx context.Context, exchange, key string, event *OrderEvent) {
	if err := s.publisher.Publish(ctx, exchange, key, event); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("exchange", exchange).
			Str("routing_key", key).
			Str("order_id", event.OrderID).
			Msg("failed to publish order event")
	}
}

func (s *OrderService) event(order *Order, eventType EventType) *OrderEvent {
	return &OrderEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     order.Status,
		Timestamp:  time.Now().UTC(),
	}
}

func totalAmount(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// validateStatus rejects transitions to unknown statuses before they
// reach storage.
func validateStatus(status OrderStatus) error {
	switch status {
	case StatusPending, StatusConfirmed, StatusPaymentProcessing,
		StatusPaymentConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return nil
	default:
		return fmt.Errorf("unknown order status %q", status)
	}
}
