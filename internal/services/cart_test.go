package services

import (
	"math"
	"sync"

	"github.com/SigNoz/skincare-shop/internal/db"
	"github.com/SigNoz/skincare-shop/internal/models"
	"github.com/shopspring/decimal"
)

func (s *ServiceSuite) TestAddItem_Accumulates() {
	p := s.createProduct("Toner", "100000")

	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", p.ID, 2))
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", p.ID, 3))

	cart, err := s.store.FindCartByUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Equal([]models.CartItem{{ProductID: p.ID, Quantity: 5}}, cart.Items)
}

func (s *ServiceSuite) TestAddItem_QuantityBelowOneCountsAsOne() {
	p := s.createProduct("Toner", "10")

	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", p.ID, 0))
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", p.ID, -4))

	cart, err := s.carts.GetCart(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1)
	s.Require().Equal(2, cart.Items[0].Quantity)
}

func (s *ServiceSuite) TestAddItem_UnknownProduct() {
	err := s.carts.AddItem(s.ctx, "u1", "missing", 1)
	s.Require().ErrorIs(err, ErrNotFound)

	// nothing was written
	_, err = s.store.FindCartByUser(s.ctx, "u1")
	s.Require().ErrorIs(err, db.ErrNoDocument)
}

func (s *ServiceSuite) TestAddItem_Validation() {
	s.Require().ErrorIs(s.carts.AddItem(s.ctx, "", "p1", 1), ErrValidation)
	s.Require().ErrorIs(s.carts.AddItem(s.ctx, "u1", "", 1), ErrValidation)
}

func (s *ServiceSuite) TestAddItem_RejectsOversizedQuantity() {
	p := s.createProduct("Toner", "10")

	s.Require().ErrorIs(s.carts.AddItem(s.ctx, "u1", p.ID, math.MaxInt), ErrValidation)
	s.Require().ErrorIs(s.carts.AddItem(s.ctx, "u1", p.ID, MaxLineQuantity+1), ErrValidation)

	_, err := s.store.FindCartByUser(s.ctx, "u1")
	s.Require().ErrorIs(err, db.ErrNoDocument)
}

func (s *ServiceSuite) TestAddItem_LineCannotGrowPastCap() {
	p := s.createProduct("Toner", "10")

	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", p.ID, MaxLineQuantity))
	s.Require().ErrorIs(s.carts.AddItem(s.ctx, "u1", p.ID, 1), ErrValidation)
	s.Require().ErrorIs(s.carts.AddItem(s.ctx, "u1", p.ID, MaxLineQuantity), ErrValidation)

	cart, err := s.store.FindCartByUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Equal([]models.CartItem{{ProductID: p.ID, Quantity: MaxLineQuantity}}, cart.Items)
	s.Require().Equal(int64(1), cart.Version)
}

func (s *ServiceSuite) TestAddItem_ConcurrentAddsAreNotLost() {
	p := s.createProduct("Toner", "10")

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			errs <- s.carts.AddItem(s.ctx, "u1", p.ID, qty)
		}(i + 1)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	cart, err := s.store.FindCartByUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1)
	s.Require().Equal(36, cart.Items[0].Quantity)
}

func (s *ServiceSuite) TestGetCart_Empty() {
	cart, err := s.carts.GetCart(s.ctx, "nobody")
	s.Require().NoError(err)
	s.Require().NotNil(cart.Items)
	s.Require().Empty(cart.Items)
	s.Require().True(cart.Total.IsZero())
}

func (s *ServiceSuite) TestGetCart_PricesLines() {
	a := s.createProduct("Toner", "100000")
	b := s.createProduct("Serum", "50000")
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", a.ID, 2))
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", b.ID, 1))

	cart, err := s.carts.GetCart(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 2)
	s.Require().Equal("Toner", cart.Items[0].Title)
	s.Require().True(cart.Items[0].Subtotal.Equal(decimal.NewFromInt(200000)))
	s.Require().True(cart.Total.Equal(decimal.NewFromInt(250000)))
}

func (s *ServiceSuite) TestGetCart_DropsDeletedProducts() {
	a := s.createProduct("Toner", "100000")
	b := s.createProduct("Serum", "50000")
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", a.ID, 1))
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", b.ID, 1))
	s.Require().NoError(s.store.DeleteProduct(s.ctx, b.ID))

	cart, err := s.carts.GetCart(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(cart.Items, 1)
	s.Require().Equal(a.ID, cart.Items[0].ProductID)
	s.Require().True(cart.Total.Equal(decimal.NewFromInt(100000)))
}

func (s *ServiceSuite) TestGetCart_ExactDecimalTotals() {
	p := s.createProduct("Sample", "0.1")
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", p.ID, 3))

	cart, err := s.carts.GetCart(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Equal("0.3", cart.Total.String())
}

func (s *ServiceSuite) TestMutateCart_GivesUpWhenAlwaysConflicting() {
	p := s.createProduct("Toner", "10")
	s.Require().NoError(s.carts.AddItem(s.ctx, "u1", p.ID, 1))

	s.wire(&conflictingStore{Store: s.store})
	s.carts.maxAttempts = 3

	err := s.carts.AddItem(s.ctx, "u1", p.ID, 1)
	s.Require().ErrorIs(err, ErrCartBusy)
}

func (s *ServiceSuite) TestSubtractItems() {
	items := []models.CartItem{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 5}, {ProductID: "c", Quantity: 1}}
	snapshot := []models.CartItem{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 3}}

	out, changed := subtractItems(items, snapshot)
	s.Require().True(changed)
	s.Require().Equal([]models.CartItem{{ProductID: "b", Quantity: 2}, {ProductID: "c", Quantity: 1}}, out)

	_, changed = subtractItems(items, nil)
	s.Require().False(changed)
}
