package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/12344-munna/facebook-webhook-backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore struct {
	client    *mongo.Client
	inventory *mongo.Collection
	orders    *mongo.Collection
	outbox    *mongo.Collection
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{
		client:    db.Client(),
		inventory: db.Collection("inventory"),
		orders:    db.Collection("orders"),
		outbox:    db.Collection("outbox"),
	}
}

func (m *mongoStore) FindProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product

	filter := bson.M{"product_id": id}
	err := m.inventory.FindOne(ctx, filter).Decode(&product)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product %q: %w", id, err)
	}

	return &product, nil
}

func (m *mongoStore) UpdateProductStock(ctx context.Context, id string, sizes map[string]int, availableAmount int) error {
	filter := bson.M{"product_id": id}
	update := bson.M{"$set": bson.M{
		"sizes":            sizes,
		"available_amount": availableAmount,
		"updated_at":       time.Now(),
	}}

	result, err := m.inventory.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update stock for product %q: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (m *mongoStore) CreateOrder(ctx context.Context, order *domain.Order) (string, error) {
	now := time.Now()
	order.CreatedAt = now
	order.OrderDate = now

	result, err := m.orders.InsertOne(ctx, order)
	if err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

func (m *mongoStore) InsertOutboxEvent(ctx context.Context, event *OutboxEvent) error {
	event.CreatedAt = time.Now()

	if _, err := m.outbox.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

func (m *mongoStore) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	filter := bson.M{"processed": false}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := m.outbox.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox events: %w", err)
	}

	var events []*OutboxEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode outbox events: %w", err)
	}
	return events, nil
}

func (m *mongoStore) MarkEventAsProcessed(ctx context.Context, id string) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{"processed": true, "processed_at": time.Now()}}

	result, err := m.outbox.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %q: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrEventNotFound
	}
	return nil
}

// RunTransaction wraps fn in a MongoDB multi-document transaction. The driver
// retries fn on TransientTransactionError and retries the commit on
// UnknownTransactionCommitResult; what reaches mapTxnError is final.
func (m *mongoStore) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("%w: failed to start session: %v", ErrStoreUnavailable, err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return mapTxnError(err)
}

// mapTxnError translates driver-level failures into the store error taxonomy
// while passing validation errors from the callback through untouched.
func mapTxnError(err error) error {
	if err == nil {
		return nil
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		if cmdErr.HasErrorLabel("TransientTransactionError") ||
			cmdErr.HasErrorLabel("UnknownTransactionCommitResult") {
			return fmt.Errorf("%w: %v", ErrTxnConflict, err)
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return err
}

func (m *mongoStore) CreateIndexes(ctx context.Context) error {
	_, err := m.inventory.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "product_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create inventory index: %w", err)
	}

	_, err = m.outbox.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "processed", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create outbox index: %w", err)
	}

	return nil
}
