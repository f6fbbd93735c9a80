package db

import (
	"context"
	"errors"
	"time"

	"github.com/SigNoz/skincare-shop/internal/metrics"
	"github.com/SigNoz/skincare-shop/internal/models"
)

// instrumentedStore records an operation metric around every call of the
// wrapped store. Misses, duplicates and version conflicts count as success
// because they are answers, not failures.
type instrumentedStore struct {
	next    Store
	metrics *metrics.AppMetrics
}

// WithMetrics wraps store so every operation is recorded on m
func WithMetrics(store Store, m *metrics.AppMetrics) Store {
	if m == nil {
		return store
	}
	return &instrumentedStore{next: store, metrics: m}
}

func (s *instrumentedStore) record(ctx context.Context, op, coll string, start time.Time, err error) {
	ok := err == nil ||
		errors.Is(err, ErrNoDocument) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrVersionConflict)
	s.metrics.RecordDBOperation(ctx, op, coll, s.next.Driver(), start, ok)
}

func (s *instrumentedStore) InsertUser(ctx context.Context, user *models.User) error {
	start := time.Now()
	err := s.next.InsertUser(ctx, user)
	s.record(ctx, "insert", CollectionUsers, start, err)
	return err
}

func (s *instrumentedStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	start := time.Now()
	u, err := s.next.FindUserByEmail(ctx, email)
	s.record(ctx, "find_one", CollectionUsers, start, err)
	return u, err
}

func (s *instrumentedStore) InsertProduct(ctx context.Context, product *models.Product) error {
	start := time.Now()
	err := s.next.InsertProduct(ctx, product)
	s.record(ctx, "insert", CollectionProducts, start, err)
	return err
}

func (s *instrumentedStore) FindProduct(ctx context.Context, id string) (*models.Product, error) {
	start := time.Now()
	p, err := s.next.FindProduct(ctx, id)
	s.record(ctx, "find_one", CollectionProducts, start, err)
	return p, err
}

func (s *instrumentedStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	start := time.Now()
	ps, err := s.next.ListProducts(ctx)
	s.record(ctx, "find", CollectionProducts, start, err)
	return ps, err
}

func (s *instrumentedStore) FindCartByUser(ctx context.Context, userID string) (*models.Cart, error) {
	start := time.Now()
	c, err := s.next.FindCartByUser(ctx, userID)
	s.record(ctx, "find_one", CollectionCarts, start, err)
	return c, err
}

func (s *instrumentedStore) InsertCart(ctx context.Context, cart *models.Cart) error {
	start := time.Now()
	err := s.next.InsertCart(ctx, cart)
	s.record(ctx, "insert", CollectionCarts, start, err)
	return err
}

func (s *instrumentedStore) UpdateCartItems(ctx context.Context, cartID string, expectedVersion int64, items []models.CartItem) error {
	start := time.Now()
	err := s.next.UpdateCartItems(ctx, cartID, expectedVersion, items)
	s.record(ctx, "update", CollectionCarts, start, err)
	return err
}

func (s *instrumentedStore) InsertOrder(ctx context.Context, order *models.Order) error {
	start := time.Now()
	err := s.next.InsertOrder(ctx, order)
	s.record(ctx, "insert", CollectionOrders, start, err)
	return err
}

func (s *instrumentedStore) FindOrderByKey(ctx context.Context, userID, key string) (*models.Order, error) {
	start := time.Now()
	o, err := s.next.FindOrderByKey(ctx, userID, key)
	s.record(ctx, "find_one", CollectionOrders, start, err)
	return o, err
}

func (s *instrumentedStore) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	start := time.Now()
	os, err := s.next.ListOrdersByUser(ctx, userID)
	s.record(ctx, "find", CollectionOrders, start, err)
	return os, err
}

func (s *instrumentedStore) Collections(ctx context.Context) ([]string, error) {
	return s.next.Collections(ctx)
}

func (s *instrumentedStore) Driver() string { return s.next.Driver() }

func (s *instrumentedStore) Close(ctx context.Context) error { return s.next.Close(ctx) }
