// Package service contains the order confirmation coordinator: the atomic
// validate-decrement-create sequence that turns an admin command into a
// committed order.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/12344-munna/facebook-webhook-backend/internal/cache"
	"github.com/12344-munna/facebook-webhook-backend/internal/domain"
	"github.com/12344-munna/facebook-webhook-backend/internal/parser"
	"github.com/12344-munna/facebook-webhook-backend/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const EventOrderConfirmed = "order.confirmed"

type ConfirmationService struct {
	store repository.Store
	cache cache.ProductCache // may be nil: caching is best-effort
	sfg   singleflight.Group // Prevents cache stampede on product reads
}

func NewConfirmationService(store repository.Store, cache cache.ProductCache) *ConfirmationService {
	return &ConfirmationService{
		store: store,
		cache: cache,
	}
}

// orderConfirmedEvent is the outbox payload announcing a committed order.
type orderConfirmedEvent struct {
	OrderID       string    `json:"order_id"`
	CustomerName  string    `json:"customer_name"`
	CODAmount     float64   `json:"cod_amount"`
	Profit        float64   `json:"profit"`
	ItemCount     int       `json:"item_count"`
	ChannelUserID string    `json:"channel_user_id"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// ConfirmOrder parses rawText and atomically validates stock for every
// referenced product, decrements inventory, and creates the order record.
// Either all of it commits or none of it does; on any failure the store is
// untouched and a single error describing the first offending item comes
// back.
//
// Running the same command twice creates two orders and decrements stock
// twice. Duplicate webhook deliveries are filtered upstream.
func (s *ConfirmationService) ConfirmOrder(ctx context.Context, rawText, channelUserID string) (string, error) {
	req := parser.Parse(rawText)
	if len(req.ProductCodes) == 0 {
		return "", ErrEmptyOrder
	}

	var orderID string
	var touched []string

	err := s.store.RunTransaction(ctx, func(txCtx context.Context) error {
		id, productIDs, err := s.confirmInTxn(txCtx, req, channelUserID)
		if err != nil {
			return err
		}
		orderID = id
		touched = productIDs
		return nil
	})
	if err != nil {
		return "", err
	}

	for _, productID := range touched {
		s.invalidateCache(productID)
	}

	return orderID, nil
}

// confirmInTxn runs inside one store transaction. All writes are deferred
// until every code has been validated, so the first invalid item aborts with
// nothing staged against the store.
func (s *ConfirmationService) confirmInTxn(ctx context.Context, req parser.OrderRequest, channelUserID string) (string, []string, error) {
	// Products staged locally, keyed by product id. A repeated code for the
	// same product must observe the earlier decrement of this run, so each
	// product is read once and mutated in place.
	staged := make(map[string]*domain.Product)
	var touched []string // product ids in first-touch order

	var items []domain.OrderItem
	var totalCostOfGoods float64

	for _, code := range req.ProductCodes {
		productID, sizeKey, err := splitProductCode(code)
		if err != nil {
			return "", nil, err
		}

		product, ok := staged[productID]
		if !ok {
			product, err = s.store.FindProductByID(ctx, productID)
			if err != nil {
				if errors.Is(err, repository.ErrProductNotFound) {
					return "", nil, fmt.Errorf("%w for code %q", repository.ErrProductNotFound, code)
				}
				return "", nil, err
			}
			staged[productID] = product
			touched = append(touched, productID)
		}

		qty := product.Sizes[sizeKey]
		if qty <= 0 {
			return "", nil, fmt.Errorf("%w: %s (size %s)", ErrOutOfStock, product.Name, sizeKey)
		}

		product.Sizes[sizeKey] = qty - 1
		product.AvailableAmount = product.TotalStock()

		totalCostOfGoods += product.BuyingPrice
		items = append(items, domain.OrderItem{
			ProductID:             product.ProductID,
			ProductName:           product.Name,
			SelectedSizes:         map[string]int{sizeKey: 1},
			UnitSellingPrice:      product.SellingPrice,
			ItemTotalSellingPrice: product.SellingPrice,
			UnitBuyingPrice:       product.BuyingPrice,
		})
	}

	// COD covers what the customer still owes; the advance already offset
	// part of the cost of goods.
	profit := req.CashOnDelivery - (totalCostOfGoods - req.AdvancePaid)

	for _, productID := range touched {
		p := staged[productID]
		if err := s.store.UpdateProductStock(ctx, p.ProductID, p.Sizes, p.AvailableAmount); err != nil {
			return "", nil, err
		}
	}

	orderID, err := s.store.CreateOrder(ctx, &domain.Order{
		Items:           items,
		CustomerName:    req.CustomerName,
		CustomerAddress: req.CustomerAddress,
		CustomerPhone:   req.CustomerPhone,
		DeliveryCharge:  req.DeliveryCharge,
		AdvancePaid:     req.AdvancePaid,
		TotalOrderPrice: req.CashOnDelivery,
		CODAmount:       req.CashOnDelivery,
		Profit:          profit,
		Status:          domain.StatusConfirmed,
		Source:          domain.SourceFacebookAdmin,
		ChannelUserID:   channelUserID,
	})
	if err != nil {
		return "", nil, err
	}

	payload, err := json.Marshal(orderConfirmedEvent{
		OrderID:       orderID,
		CustomerName:  req.CustomerName,
		CODAmount:     req.CashOnDelivery,
		Profit:        profit,
		ItemCount:     len(items),
		ChannelUserID: channelUserID,
		ConfirmedAt:   time.Now(),
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal order event: %w", err)
	}

	err = s.store.InsertOutboxEvent(ctx, &repository.OutboxEvent{
		ID:          uuid.New().String(),
		AggregateID: orderID,
		EventType:   EventOrderConfirmed,
		Payload:     payload,
	})
	if err != nil {
		return "", nil, err
	}

	return orderID, touched, nil
}

// GetProduct serves product reads through the cache. Cache failures degrade
// to a store read.
func (s *ConfirmationService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	if s.cache == nil {
		return s.store.FindProductByID(ctx, productID)
	}

	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(productID, func() (interface{}, error) {
		product, err := s.cache.Get(ctx, productID)
		if err == nil {
			return product, nil
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		product, errGet := s.store.FindProductByID(ctx, productID)
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), productID, product); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return product, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Product), nil
}

func (s *ConfirmationService) invalidateCache(productID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, productID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}

// splitProductCode splits "<productId>-<size>" on the first two dash-separated
// parts. The size label is normalized to uppercase; the product id is matched
// exactly as written (after trimming).
func splitProductCode(code string) (string, string, error) {
	parts := strings.Split(code, "-")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidCodeFormat, code)
	}

	productID := strings.TrimSpace(parts[0])
	sizeKey := strings.ToUpper(strings.TrimSpace(parts[1]))
	if productID == "" || sizeKey == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidCodeFormat, code)
	}

	return productID, sizeKey, nil
}
