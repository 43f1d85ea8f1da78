package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spanlink/spanlink"
	"github.com/spanlink/spanlink/attr"
)

// ErrOrderNotFound is returned when no order matches the given id.
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository stores orders in MongoDB. Every operation runs
// inside its own client span so slow queries show up in traces.
type OrderRepository struct {
	orders *mongo.Collection

	saveDesc       *spanlink.Descriptor
	findDesc       *spanlink.Descriptor
	listDesc       *spanlink.Descriptor
	byCustomerDesc *spanlink.Descriptor
	updateDesc     *spanlink.Descriptor
}

func NewOrderRepository(db *mongo.Database, tp ...spanlink.DescriptorOption) *OrderRepository {
	static := append([]spanlink.DescriptorOption{
		spanlink.Kind(spanlink.SpanKindClient),
		spanlink.StaticPairs("db.system:mongodb", "db.collection:orders"),
	}, tp...)

	desc := func(method string) *spanlink.Descriptor {
		return spanlink.NewDescriptor("OrderRepository", method, static...)
	}

	return &OrderRepository{
		orders:         db.Collection("orders"),
		saveDesc:       desc("Save"),
		findDesc:       desc("FindByID"),
		listDesc:       desc("FindAll"),
		byCustomerDesc: desc("FindByCustomer"),
		updateDesc:     desc("UpdateStatus"),
	}
}

func (r *OrderRepository) Save(ctx context.Context, order *Order) error {
	return spanlink.Traced(ctx, r.saveDesc, func(ctx context.Context) error {
		opts := options.Replace().SetUpsert(true)
		_, err := r.orders.ReplaceOne(ctx, bson.M{"_id": order.ID}, order, opts)
		if err != nil {
			return fmt.Errorf("save order %s: %w", order.ID, err)
		}
		return nil
	}, attr.Fields(order))
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*Order, error) {
	return spanlink.TracedResult(ctx, r.findDesc, func(ctx context.Context) (*Order, error) {
		var order Order
		err := r.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		if err != nil {
			return nil, fmt.Errorf("find order %s: %w", id, err)
		}
		return &order, nil
	}, attr.String("order.id", id))
}

func (r *OrderRepository) FindAll(ctx context.Context) ([]Order, error) {
	return spanlink.TracedResult(ctx, r.listDesc, func(ctx context.Context) ([]Order, error) {
		return r.findMany(ctx, bson.M{})
	})
}

func (r *OrderRepository) FindByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return spanlink.TracedResult(ctx, r.byCustomerDesc, func(ctx context.Context) ([]Order, error) {
		return r.findMany(ctx, bson.M{"customerId": customerID})
	}, attr.String("order.customer_id", customerID))
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status OrderStatus) (*Order, error) {
	return spanlink.TracedResult(ctx, r.updateDesc, func(ctx context.Context) (*Order, error) {
		update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		var order Order
		err := r.orders.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&order)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		if err != nil {
			return nil, fmt.Errorf("update order %s: %w", id, err)
		}
		return &order, nil
	}, attr.String("order.id", id), attr.String("order.status", string(status)))
}

func (r *OrderRepository) findMany(ctx context.Context, filter bson.M) ([]Order, error) {
	cursor, err := r.orders.Find(ctx, filter, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}
