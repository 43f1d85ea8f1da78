package main

import (
	"strconv"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending           OrderStatus = "PENDING"
	StatusConfirmed         OrderStatus = "CONFIRMED"
	StatusPaymentProcessing OrderStatus = "PAYMENT_PROCESSING"
	StatusPaymentConfirmed  OrderStatus = "PAYMENT_CONFIRMED"
	StatusShipped           OrderStatus = "SHIPPED"
	StatusDelivered         OrderStatus = "DELIVERED"
	StatusCancelled         OrderStatus = "CANCELLED"
)

// Order is the persisted aggregate.
type Order struct {
	ID            string      `bson:"_id" json:"id"`
	CustomerID    string      `bson:"customerId" json:"customerId"`
	CustomerEmail string      `bson:"customerEmail" json:"customerEmail"`
	Items         []OrderItem `bson:"items" json:"items"`
	TotalAmount   float64     `bson:"totalAmount" json:"totalAmount"`
	Status        OrderStatus `bson:"status" json:"status"`
	CreatedAt     time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ProductID   string  `bson:"productId" json:"productId"`
	ProductName string  `bson:"productName" json:"productName"`
	Quantity    int     `bson:"quantity" json:"quantity"`
	Price       float64 `bson:"price" json:"price"`
}

// TraceAttributes projects the order onto span attributes. The
// customer email is deliberately excluded: spans must not carry PII.
func (o *Order) TraceAttributes() map[string]string {
	return map[string]string{
		"order.id":           o.ID,
		"order.customer_id":  o.CustomerID,
		"order.status":       string(o.Status),
		"order.total_amount": strconv.FormatFloat(o.TotalAmount, 'f', 2, 64),
		"order.items_count":  strconv.Itoa(len(o.Items)),
	}
}

// EventType names a lifecycle transition as carried on the bus.
type EventType string

const (
	EventOrderCreated      EventType = "ORDER_CREATED"
	EventPaymentProcessing EventType = "PAYMENT_PROCESSING"
	EventPaymentConfirmed  EventType = "PAYMENT_CONFIRMED"
	EventOrderShipped      EventType = "ORDER_SHIPPED"
	EventOrderCancelled    EventType = "ORDER_CANCELLED"
)

// OrderEvent is the message published on every order state change.
//
// The trace fields are passengers: the publisher stamps the producer
// span's coordinates into them and consumers link back through them.
// They are omitted from the payload when empty so events published
// outside any trace stay clean.
type OrderEvent struct {
	EventID    string      `json:"eventId"`
	EventType  EventType   `json:"eventType"`
	OrderID    string      `json:"orderId"`
	CustomerID string      `json:"customerId"`
	Status     OrderStatus `json:"status"`
	Timestamp  time.Time   `json:"timestamp"`

	TraceID    string `json:"traceId,omitempty"`
	SpanID     string `json:"spanId,omitempty"`
	TraceFlags string `json:"traceFlags,omitempty"`
}

// TraceAttributes projects the event onto span attributes.
func (e *OrderEvent) TraceAttributes() map[string]string {
	return map[string]string{
		"event.id":          e.EventID,
		"event.type":        string(e.EventType),
		"order.id":          e.OrderID,
		"order.customer_id": e.CustomerID,
		"order.status":      string(e.Status),
	}
}

// TraceContext returns the embedded producer span coordinates.
func (e *OrderEvent) TraceContext() (string, string, string) {
	return e.TraceID, e.SpanID, e.TraceFlags
}

// SetTraceContext stamps producer span coordinates onto the event.
func (e *OrderEvent) SetTraceContext(traceID, spanID, flags string) {
	e.TraceID, e.SpanID, e.TraceFlags = traceID, spanID, flags
}

// CreateOrderRequest is the POST /api/orders payload.
type CreateOrderRequest struct {
	CustomerID    string      `json:"customerId"`
	CustomerEmail string      `json:"customerEmail"`
	Items         []OrderItem `json:"items"`
}
