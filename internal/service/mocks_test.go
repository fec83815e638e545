package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/12344-munna/facebook-webhook-backend/internal/cache"
	"github.com/12344-munna/facebook-webhook-backend/internal/domain"
	"github.com/12344-munna/facebook-webhook-backend/internal/repository"
)

// fakeStore implements repository.Store in memory with all-or-nothing
// transaction semantics: RunTransaction snapshots the state and restores it
// when the callback fails.
type fakeStore struct {
	Products map[string]*domain.Product
	Orders   []*domain.Order
	Outbox   []*repository.OutboxEvent

	FindCalls   int
	UpdateCalls int

	TxnErr    error // returned instead of running the callback
	CreateErr error
	UpdateErr error
}

func newFakeStore(products ...*domain.Product) *fakeStore {
	s := &fakeStore{Products: make(map[string]*domain.Product)}
	for _, p := range products {
		s.Products[p.ProductID] = p
	}
	return s
}

func (f *fakeStore) FindProductByID(_ context.Context, id string) (*domain.Product, error) {
	f.FindCalls++
	p, ok := f.Products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return copyProduct(p), nil
}

func (f *fakeStore) UpdateProductStock(_ context.Context, id string, sizes map[string]int, availableAmount int) error {
	f.UpdateCalls++
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	p, ok := f.Products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Sizes = sizes
	p.AvailableAmount = availableAmount
	return nil
}

func (f *fakeStore) CreateOrder(_ context.Context, order *domain.Order) (string, error) {
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	order.ID = fmt.Sprintf("order-%d", len(f.Orders)+1)
	f.Orders = append(f.Orders, order)
	return order.ID, nil
}

func (f *fakeStore) InsertOutboxEvent(_ context.Context, event *repository.OutboxEvent) error {
	f.Outbox = append(f.Outbox, event)
	return nil
}

func (f *fakeStore) GetUnprocessedEvents(context.Context, int) ([]*repository.OutboxEvent, error) {
	var unprocessed []*repository.OutboxEvent
	for _, ev := range f.Outbox {
		if !ev.Processed {
			unprocessed = append(unprocessed, ev)
		}
	}
	return unprocessed, nil
}

func (f *fakeStore) MarkEventAsProcessed(_ context.Context, id string) error {
	for _, ev := range f.Outbox {
		if ev.ID == id {
			ev.Processed = true
			return nil
		}
	}
	return repository.ErrEventNotFound
}

func (f *fakeStore) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.TxnErr != nil {
		return f.TxnErr
	}

	snapProducts := make(map[string]*domain.Product, len(f.Products))
	for id, p := range f.Products {
		snapProducts[id] = copyProduct(p)
	}
	snapOrders := append([]*domain.Order(nil), f.Orders...)
	snapOutbox := append([]*repository.OutboxEvent(nil), f.Outbox...)

	if err := fn(ctx); err != nil {
		f.Products = snapProducts
		f.Orders = snapOrders
		f.Outbox = snapOutbox
		return err
	}
	return nil
}

func copyProduct(p *domain.Product) *domain.Product {
	cp := *p
	cp.Sizes = make(map[string]int, len(p.Sizes))
	for k, v := range p.Sizes {
		cp.Sizes[k] = v
	}
	return &cp
}

// fakeCache implements cache.ProductCache with observable call history.
// Mutex-guarded because the service sets cache entries from a goroutine.
type fakeCache struct {
	mu      sync.Mutex
	Values  map[string]*domain.Product
	Deleted []string
	GetErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{Values: make(map[string]*domain.Product)}
}

func (f *fakeCache) Get(_ context.Context, productID string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	p, ok := f.Values[productID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return p, nil
}

func (f *fakeCache) Set(_ context.Context, productID string, product *domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Values[productID] = product
	return nil
}

func (f *fakeCache) Delete(_ context.Context, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, productID)
	delete(f.Values, productID)
	return nil
}

func (f *fakeCache) has(productID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Values[productID]
	return ok
}

func (f *fakeCache) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Deleted...)
}
