package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SigNoz/skincare-shop/internal/db"
	"github.com/SigNoz/skincare-shop/internal/metrics"
	"github.com/SigNoz/skincare-shop/internal/models"
	"github.com/rs/zerolog"
)

// OrderService handles checkout and order history
type OrderService struct {
	store   db.Store
	carts   *CartService
	metrics *metrics.AppMetrics
	log     zerolog.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store db.Store, carts *CartService, metrics *metrics.AppMetrics, log zerolog.Logger) *OrderService {
	return &OrderService{
		store:   store,
		carts:   carts,
		metrics: metrics,
		log:     log,
	}
}

func derivedKey(cart *models.Cart) string {
	return fmt.Sprintf("cart:%s:v%d", cart.ID, cart.Version)
}

func (s *OrderService) findByKey(ctx context.Context, userID, key string) (*models.Order, error) {
	order, err := s.store.FindOrderByKey(ctx, userID, key)
	if errors.Is(err, db.ErrNoDocument) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}
	return order, nil
}

// Checkout turns the user's cart into a pending order priced at current catalog
// prices and then clears the checked-out lines from the cart.
//
// Every order carries an idempotency key: the caller's key, or one derived
// from the cart id and version. A checkout that finds an order under its key
// returns that order instead of creating another, and finishes the cart
// clear if the cart still sits at the version the order was priced from.
// A checkout that failed after the order insert can therefore be retried.
func (s *OrderService) Checkout(ctx context.Context, userID, idempotencyKey string) (*models.Order, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	cart, err := s.store.FindCartByUser(ctx, userID)
	if errors.Is(err, db.ErrNoDocument) {
		cart = nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	key := idempotencyKey
	if key == "" && cart != nil && len(cart.Items) > 0 {
		key = derivedKey(cart)
	}
	if key != "" {
		existing, err := s.findByKey(ctx, userID, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.log.Info().Str("order_id", existing.ID).Str("user_id", userID).Msg("checkout replayed")
			return existing, s.finishReplay(ctx, userID, existing)
		}
	}

	if cart == nil || len(cart.Items) == 0 {
		return nil, ErrInvalidState
	}

	lines, total, err := priceItems(ctx, s.store, cart.Items)
	if err != nil {
		return nil, err
	}
	order := &models.Order{
		UserID:         userID,
		Items:          make([]models.OrderItem, 0, len(lines)),
		Total:          total,
		Status:         models.OrderStatusPending,
		IdempotencyKey: key,
		CartVersion:    cart.Version,
		CreatedAt:      time.Now().UTC(),
	}
	for _, l := range lines {
		order.Items = append(order.Items, models.OrderItem{ProductID: l.ProductID, Quantity: l.Quantity, Price: l.Price})
	}

	if err := s.store.InsertOrder(ctx, order); err != nil {
		if !errors.Is(err, db.ErrDuplicate) {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		// a concurrent checkout with the same key got there first
		existing, err := s.findByKey(ctx, userID, key)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("failed to load order for key %q", key)
		}
		return existing, s.finishReplay(ctx, userID, existing)
	}

	s.metrics.OrdersCreated.Add(ctx, 1, s.metrics.Attrs())
	s.metrics.RevenueTotal.Add(ctx, order.Total.InexactFloat64(), s.metrics.Attrs())
	s.log.Info().
		Str("order_id", order.ID).
		Str("user_id", userID).
		Str("total", order.Total.String()).
		Int("items", len(order.Items)).
		Msg("order created")

	snapshot := cart.Items
	_, err = s.carts.mutateCart(ctx, userID, false, func(current *models.Cart) ([]models.CartItem, bool, error) {
		items, changed := subtractItems(current.Items, snapshot)
		return items, changed, nil
	})
	if err != nil {
		return order, fmt.Errorf("order %s created but cart not cleared: %w", order.ID, err)
	}
	return order, nil
}

// finishReplay clears the cart for an order found by key, but only if the cart
// has not moved since the order was priced. Otherwise the clear already
// happened or the cart holds newer lines that belong to no order.
func (s *OrderService) finishReplay(ctx context.Context, userID string, order *models.Order) error {
	_, err := s.carts.mutateCart(ctx, userID, false, func(current *models.Cart) ([]models.CartItem, bool, error) {
		if current.Version != order.CartVersion || len(current.Items) == 0 {
			return current.Items, false, nil
		}
		return []models.CartItem{}, true, nil
	})
	if err != nil {
		return fmt.Errorf("order %s exists but cart not cleared: %w", order.ID, err)
	}
	return nil
}

// ListOrders returns the user's orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.store.ListOrdersByUser(ctx, userID)
	if errors.Is(err, db.ErrUnconfigured) {
		return []models.Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
