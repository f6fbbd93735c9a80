package services

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/SigNoz/skincare-shop/internal/db"
	"github.com/SigNoz/skincare-shop/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// conflictingStore reports a version conflict on every cart update
type conflictingStore struct {
	db.Store
}

func (c *conflictingStore) UpdateCartItems(ctx context.Context, cartID string, expectedVersion int64, items []models.CartItem) error {
	return db.ErrVersionConflict
}

// flakyStore fails the first n cart updates, as if the process died right
// after writing the order
type flakyStore struct {
	db.Store
	failures atomic.Int32
}

var errInjected = errors.New("injected store failure")

func (f *flakyStore) UpdateCartItems(ctx context.Context, cartID string, expectedVersion int64, items []models.CartItem) error {
	if f.failures.Add(-1) >= 0 {
		return errInjected
	}
	return f.Store.UpdateCartItems(ctx, cartID, expectedVersion, items)
}

func (s *ServiceSuite) TestCheckout() {
	a := s.createProduct("Toner", "100000")
	b := s.createProduct("Serum", "50000")
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", a.ID, 2))
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", b.ID, 1))

	order, err := s.orders.Checkout(s.ctx, "u1", "")
	s.Require().NoError(err)
	s.Require().NotEmpty(order.ID)
	s.Require().Equal(models.OrderStatusPending, order.Status)
	s.Require().True(order.Total.Equal(decimal.NewFromInt(250000)))
	s.Require().Len(order.Items, 2)
	s.Require().True(order.Items[0].Price.Equal(decimal.NewFromInt(100000)))

	cart, err := s.carts.GetCart(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Empty(cart.Items)
	s.Require().True(cart.Total.IsZero())

	// the emptied cart cannot be checked out again
	_, err = s.orders.Checkout(s.ctx, "u1", "")
	s.Require().ErrorIs(err, ErrInvalidState)
	s.Require().Equal(1, s.store.OrderCount())
}

func (s *ServiceSuite) TestCheckout_MissingOrEmptyCart() {
	_, err := s.orders.Checkout(s.ctx, "nobody", "")
	s.Require().ErrorIs(err, ErrInvalidState)

	s.Require().NoError(s.store.InsertCart(s.ctx, &models.Cart{UserID: "u2", Items: []models.CartItem{}}))
	_, err = s.orders.Checkout(s.ctx, "u2", "")
	s.Require().ErrorIs(err, ErrInvalidState)

	_, err = s.orders.Checkout(s.ctx, "", "")
	s.Require().ErrorIs(err, ErrValidation)

	s.Require().Equal(0, s.store.OrderCount())
}

func (s *ServiceSuite) TestCheckout_RetryAfterFailedCartClear() {
	p := s.createProduct("Toner", "100000")
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", p.ID, 2))

	flaky := &flakyStore{Store: s.store}
	flaky.failures.Store(1)
	s.wire(flaky)

	first, err := s.orders.Checkout(s.ctx, "u1", "")
	s.Require().ErrorIs(err, errInjected)
	s.Require().NotNil(first)

	// the cart still holds the lines, a retry must not order them twice
	second, err := s.orders.Checkout(s.ctx, "u1", "")
	s.Require().NoError(err)
	s.Require().Equal(first.ID, second.ID)
	s.Require().Equal(1, s.store.OrderCount())

	cart, err := s.carts.GetCart(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Empty(cart.Items)
}

func (s *ServiceSuite) TestCheckout_SameClientKeyReturnsSameOrder() {
	p := s.createProduct("Toner", "100000")
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", p.ID, 1))

	first, err := s.orders.Checkout(s.ctx, "u1", "client-key-1")
	s.Require().NoError(err)

	// lines added after the first checkout are not touched by the replay
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", p.ID, 4))

	second, err := s.orders.Checkout(s.ctx, "u1", "client-key-1")
	s.Require().NoError(err)
	s.Require().Equal(first.ID, second.ID)
	s.Require().Equal(1, s.store.OrderCount())

	cart, err := s.carts.GetCart(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1)
	s.Require().Equal(4, cart.Items[0].Quantity)

	third, err := s.orders.Checkout(s.ctx, "u1", "client-key-2")
	s.Require().NoError(err)
	s.Require().NotEqual(first.ID, third.ID)
	s.Require().True(third.Total.Equal(decimal.NewFromInt(400000)))
}

// afterOrderStore runs hook once, right after the first order is written and
// before checkout clears the cart
type afterOrderStore struct {
	db.Store
	hook func()
	ran  atomic.Bool
}

func (a *afterOrderStore) InsertOrder(ctx context.Context, order *models.Order) error {
	if err := a.Store.InsertOrder(ctx, order); err != nil {
		return err
	}
	if a.ran.CompareAndSwap(false, true) {
		a.hook()
	}
	return nil
}

func (s *ServiceSuite) TestCheckout_KeepsLinesAddedConcurrently() {
	a := s.createProduct("Toner", "10")
	b := s.createProduct("Serum", "20")
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", a.ID, 1))

	// another client adds lines between the order insert and the cart clear
	other := NewCartService(s.store, s.metrics, zerolog.Nop())
	var hookErr error
	wrapped := &afterOrderStore{Store: s.store, hook: func() {
		hookErr = errors.Join(
			other.AddItem(s.ctx, "u1", a.ID, 2),
			other.AddItem(s.ctx, "u1", b.ID, 2),
		)
	}}
	s.wire(wrapped)

	order, err := s.orders.Checkout(s.ctx, "u1", "")
	s.Require().NoError(err)
	s.Require().NoError(hookErr)
	s.Require().True(wrapped.ran.Load())

	s.Require().Len(order.Items, 1)
	s.Require().Equal(a.ID, order.Items[0].ProductID)
	s.Require().Equal(1, order.Items[0].Quantity)
	s.Require().True(order.Total.Equal(decimal.NewFromInt(10)))

	cart, err := s.store.FindCartByUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().ElementsMatch([]models.CartItem{
		{ProductID: a.ID, Quantity: 2},
		{ProductID: b.ID, Quantity: 2},
	}, cart.Items)
	s.Require().Equal(1, s.store.OrderCount())
}

func (s *ServiceSuite) TestOrderKeepsCheckoutPrices() {
	p := s.createProduct("Toner", "100000")
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", p.ID, 1))

	order, err := s.orders.Checkout(s.ctx, "u1", "")
	s.Require().NoError(err)

	s.Require().NoError(s.store.SetProductPrice(s.ctx, p.ID, decimal.NewFromInt(1)))

	orders, err := s.orders.ListOrders(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Require().Equal(order.ID, orders[0].ID)
	s.Require().True(orders[0].Total.Equal(decimal.NewFromInt(100000)))
	s.Require().True(orders[0].Items[0].Price.Equal(decimal.NewFromInt(100000)))
}

func (s *ServiceSuite) TestCheckout_AllLinesUnresolvable() {
	p := s.createProduct("Toner", "100000")
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", p.ID, 1))
	s.Require().NoError(s.store.DeleteProduct(s.ctx, p.ID))

	order, err := s.orders.Checkout(s.ctx, "u1", "")
	s.Require().NoError(err)
	s.Require().Empty(order.Items)
	s.Require().True(order.Total.IsZero())
}

func (s *ServiceSuite) TestListOrders_UnknownUser() {
	orders, err := s.orders.ListOrders(s.ctx, "nobody")
	s.Require().NoError(err)
	s.Require().Empty(orders)
}
