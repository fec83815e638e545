package repository

import (
	"context"
	"errors"
	"time"

	"github.com/12344-munna/facebook-webhook-backend/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrEventNotFound   = errors.New("outbox event not found")

	// ErrTxnConflict is returned when the store's optimistic transaction
	// mechanism gave up after exhausting its retries.
	ErrTxnConflict = errors.New("transaction aborted due to write conflict")

	// ErrStoreUnavailable covers infrastructure failures (connectivity,
	// timeouts) as opposed to validation or contention.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// OutboxEvent is written in the same transaction as the order it announces
// and published to Kafka by the outbox poller.
type OutboxEvent struct {
	ID          string    `bson:"_id"`
	AggregateID string    `bson:"aggregate_id"`
	EventType   string    `bson:"event_type"`
	Payload     []byte    `bson:"payload"`
	Processed   bool      `bson:"processed"`
	CreatedAt   time.Time `bson:"created_at"`
}

// Store combines the inventory catalog and the order ledger behind one
// interface. Consumers define this interface, not the MongoDB implementation.
//
// Calls made with the context passed to a RunTransaction callback observe a
// consistent snapshot and are committed or aborted as a unit.
type Store interface {
	// FindProductByID returns the single product whose product_id field
	// equals id, or ErrProductNotFound.
	FindProductByID(ctx context.Context, id string) (*domain.Product, error)

	// UpdateProductStock replaces the product's size map and derived
	// available amount.
	UpdateProductStock(ctx context.Context, id string, sizes map[string]int, availableAmount int) error

	// CreateOrder persists a new order and returns its store-assigned id.
	// The creation timestamp is assigned by the store, not the caller.
	CreateOrder(ctx context.Context, order *domain.Order) (string, error)

	InsertOutboxEvent(ctx context.Context, event *OutboxEvent) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id string) error

	// RunTransaction executes fn inside one atomic transaction. If fn
	// returns an error no writes are applied. Transient write conflicts are
	// retried transparently; once retries are exhausted the failure surfaces
	// as ErrTxnConflict.
	RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
