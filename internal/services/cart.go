package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/SigNoz/skincare-shop/internal/db"
	"github.com/SigNoz/skincare-shop/internal/metrics"
	"github.com/SigNoz/skincare-shop/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// defaultCartAttempts bounds the read-modify-write loop on a cart. Every lost
// attempt means another writer committed, so N concurrent writers always
// finish within N attempts.
const defaultCartAttempts = 10

// MaxLineQuantity bounds the quantity of a single cart line
const MaxLineQuantity = 1_000_000

// CartService handles cart operations
type CartService struct {
	store       db.Store
	metrics     *metrics.AppMetrics
	log         zerolog.Logger
	maxAttempts int
}

// NewCartService creates a new cart service
func NewCartService(store db.Store, metrics *metrics.AppMetrics, log zerolog.Logger) *CartService {
	return &CartService{
		store:       store,
		metrics:     metrics,
		log:         log,
		maxAttempts: defaultCartAttempts,
	}
}

// cartMutation computes the new item list from the current cart. Returning
// false leaves the cart untouched; an error aborts the update.
type cartMutation func(cart *models.Cart) ([]models.CartItem, bool, error)

// mutateCart applies fn with a conditional write, re-reading the cart after a
// version conflict. When the user has no cart, create decides whether one is
// inserted with fn applied to an empty cart; otherwise (nil, nil) is returned.
func (s *CartService) mutateCart(ctx context.Context, userID string, create bool, fn cartMutation) (*models.Cart, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			s.metrics.CartUpdateRetries.Add(ctx, 1, s.metrics.Attrs())
			s.log.Debug().Str("user_id", userID).Int("attempt", attempt).Msg("retrying cart update")
			if err := backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		cart, err := s.store.FindCartByUser(ctx, userID)
		switch {
		case errors.Is(err, db.ErrNoDocument):
			if !create {
				return nil, nil
			}
			items, _, err := fn(&models.Cart{UserID: userID})
			if err != nil {
				return nil, err
			}
			cart = &models.Cart{UserID: userID, Items: items}
			err = s.store.InsertCart(ctx, cart)
			if err == nil {
				return cart, nil
			}
			if !errors.Is(err, db.ErrDuplicate) {
				return nil, fmt.Errorf("failed to create cart: %w", err)
			}
		case err != nil:
			return nil, fmt.Errorf("failed to get cart: %w", err)
		default:
			items, changed, err := fn(cart)
			if err != nil {
				return nil, err
			}
			if !changed {
				return cart, nil
			}
			err = s.store.UpdateCartItems(ctx, cart.ID, cart.Version, items)
			if err == nil {
				cart.Items = items
				cart.Version++
				return cart, nil
			}
			if !errors.Is(err, db.ErrVersionConflict) {
				return nil, fmt.Errorf("failed to update cart: %w", err)
			}
		}
	}
	return nil, ErrCartBusy
}

func backoff(ctx context.Context, attempt int) error {
	d := time.Duration(attempt)*time.Millisecond + rand.N(time.Millisecond)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// mergeItem returns items with quantity added to productID's line, appending
// a new line if there is none. A line may not grow past MaxLineQuantity.
func mergeItem(items []models.CartItem, productID string, quantity int) ([]models.CartItem, error) {
	out := make([]models.CartItem, 0, len(items)+1)
	found := false
	for _, it := range items {
		if it.ProductID == productID {
			if it.Quantity > MaxLineQuantity-quantity {
				return nil, fmt.Errorf("%w: quantity of a cart line cannot exceed %d", ErrValidation, MaxLineQuantity)
			}
			it.Quantity += quantity
			found = true
		}
		out = append(out, it)
	}
	if !found {
		out = append(out, models.CartItem{ProductID: productID, Quantity: quantity})
	}
	return out, nil
}

// subtractItems removes the quantities of snapshot from items. Lines that
// reach zero are dropped; lines added after the snapshot are kept.
func subtractItems(items, snapshot []models.CartItem) ([]models.CartItem, bool) {
	if len(snapshot) == 0 || len(items) == 0 {
		return items, false
	}
	taken := make(map[string]int, len(snapshot))
	for _, it := range snapshot {
		taken[it.ProductID] += it.Quantity
	}
	out := make([]models.CartItem, 0, len(items))
	changed := false
	for _, it := range items {
		if q, ok := taken[it.ProductID]; ok {
			it.Quantity -= q
			changed = true
		}
		if it.Quantity > 0 {
			out = append(out, it)
		}
	}
	return out, changed
}

// AddItem adds quantity of a product to the user's cart, creating the cart on
// first use. A quantity below 1 counts as 1; a line never exceeds
// MaxLineQuantity.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if productID == "" {
		return fmt.Errorf("%w: product_id is required", ErrValidation)
	}
	if quantity < 1 {
		quantity = 1
	}
	if quantity > MaxLineQuantity {
		return fmt.Errorf("%w: quantity cannot exceed %d", ErrValidation, MaxLineQuantity)
	}

	if _, err := s.store.FindProduct(ctx, productID); err != nil {
		if errors.Is(err, db.ErrNoDocument) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to verify product: %w", err)
	}

	cart, err := s.mutateCart(ctx, userID, true, func(cart *models.Cart) ([]models.CartItem, bool, error) {
		items, err := mergeItem(cart.Items, productID, quantity)
		return items, err == nil, err
	})
	if err != nil {
		return err
	}

	s.metrics.CartItemsCount.Record(ctx, int64(len(cart.Items)), s.metrics.Attrs(attribute.String("user_id", userID)))
	return nil
}

// GetCart returns the priced cart. A missing cart, or no store at all, is an
// empty cart.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.CartResponse, error) {
	empty := &models.CartResponse{Items: []models.CartLine{}, Total: decimal.Zero}

	cart, err := s.store.FindCartByUser(ctx, userID)
	if errors.Is(err, db.ErrNoDocument) || errors.Is(err, db.ErrUnconfigured) {
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	lines, total, err := priceItems(ctx, s.store, cart.Items)
	if err != nil {
		return nil, err
	}
	return &models.CartResponse{Items: lines, Total: total}, nil
}

// priceItems joins items against the catalog at current prices. Lines whose
// product no longer resolves are left out of both the lines and the total.
func priceItems(ctx context.Context, store db.Store, items []models.CartItem) ([]models.CartLine, decimal.Decimal, error) {
	lines := make([]models.CartLine, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		product, err := store.FindProduct(ctx, it.ProductID)
		if errors.Is(err, db.ErrNoDocument) {
			continue
		}
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("failed to get product %s: %w", it.ProductID, err)
		}
		subtotal := product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		total = total.Add(subtotal)
		lines = append(lines, models.CartLine{
			ProductID: product.ID,
			Title:     product.Title,
			ImageURL:  product.ImageURL,
			Price:     product.Price,
			Quantity:  it.Quantity,
			Subtotal:  subtotal,
		})
	}
	return lines, total, nil
}
