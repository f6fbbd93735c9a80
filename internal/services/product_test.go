package services

import (
	"github.com/SigNoz/skincare-shop/internal/db"
	"github.com/SigNoz/skincare-shop/internal/models"
	"github.com/shopspring/decimal"
)

func (s *ServiceSuite) TestCreateAndListProducts() {
	a := s.createProduct("Toner", "100000")
	b := s.createProduct("Serum", "19.99")
	s.Require().NotEqual(a.ID, b.ID)
	s.Require().True(a.InStock)

	products, err := s.products.ListProducts(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(products, 2)
	s.Require().Equal("Toner", products[0].Title)
	s.Require().True(products[1].Price.Equal(decimal.RequireFromString("19.99")))

	got, err := s.products.GetProduct(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Require().Equal("Serum", got.Title)

	_, err = s.products.GetProduct(s.ctx, "missing")
	s.Require().ErrorIs(err, ErrNotFound)
}

func (s *ServiceSuite) TestCreateProduct_Validation() {
	_, err := s.products.CreateProduct(s.ctx, models.CreateProductRequest{Title: " ", Category: "x"})
	s.Require().ErrorIs(err, ErrValidation)

	_, err = s.products.CreateProduct(s.ctx, models.CreateProductRequest{Title: "x", Category: ""})
	s.Require().ErrorIs(err, ErrValidation)

	_, err = s.products.CreateProduct(s.ctx, models.CreateProductRequest{Title: "x", Category: "y", Price: decimal.NewFromInt(-1)})
	s.Require().ErrorIs(err, ErrValidation)
}

func (s *ServiceSuite) TestUnconfiguredStore() {
	s.wire(db.Unconfigured())

	products, err := s.products.ListProducts(s.ctx)
	s.Require().NoError(err)
	s.Require().Empty(products)
	s.Require().NotNil(products)

	cart, err := s.carts.GetCart(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Empty(cart.Items)
	s.Require().True(cart.Total.IsZero())

	orders, err := s.orders.ListOrders(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Empty(orders)

	_, err = s.products.CreateProduct(s.ctx, models.CreateProductRequest{Title: "x", Category: "y"})
	s.Require().ErrorIs(err, db.ErrUnconfigured)

	s.Require().ErrorIs(s.carts.AddItem(s.ctx, "u1", "p1", 1), db.ErrUnconfigured)

	_, err = s.orders.Checkout(s.ctx, "u1", "")
	s.Require().ErrorIs(err, db.ErrUnconfigured)

	_, err = s.users.Register(s.ctx, models.RegisterRequest{Name: "A", Email: "a@example.com", Password: "x"})
	s.Require().ErrorIs(err, db.ErrUnconfigured)
	_, err = s.users.Login(s.ctx, models.LoginRequest{Email: "a@example.com", Password: "x"})
	s.Require().ErrorIs(err, db.ErrUnconfigured)
}
