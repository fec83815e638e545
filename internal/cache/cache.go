package cache

import (
	"context"
	"errors"

	"github.com/12344-munna/facebook-webhook-backend/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// ProductCache is a read-through cache for inventory documents. Entries are
// invalidated whenever a confirmation touches the product.
type ProductCache interface {
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Set(ctx context.Context, productID string, product *domain.Product) error
	Delete(ctx context.Context, productID string) error
}

// Deduper remembers webhook message ids so redelivered events are processed
// at most once.
type Deduper interface {
	// FirstSeen records the message id and reports whether this was its
	// first delivery.
	FirstSeen(ctx context.Context, messageID string) (bool, error)
}
