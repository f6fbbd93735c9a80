package db

import (
	"context"
	"errors"

	"github.com/SigNoz/skincare-shop/internal/models"
)

// Collection names shared by every backend
const (
	CollectionUsers    = "user"
	CollectionProducts = "product"
	CollectionCarts    = "cart"
	CollectionOrders   = "order"
)

// Driver names
const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverMongo  = "mongo"
	DriverMySQL  = "mysql"
)

var (
	// ErrUnconfigured is returned by every operation of a store that has no backend
	ErrUnconfigured = errors.New("database not configured")
	// ErrNoDocument is returned when a lookup matches nothing
	ErrNoDocument = errors.New("document not found")
	// ErrDuplicate is returned when an insert violates a unique key
	ErrDuplicate = errors.New("duplicate document")
	// ErrVersionConflict is returned when a conditional cart update lost the race
	ErrVersionConflict = errors.New("cart version conflict")
)

// Store gives access to the four collections. Inserts assign the record ID
// in place. Lookups return ErrNoDocument on a miss.
type Store interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	InsertProduct(ctx context.Context, product *models.Product) error
	FindProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)

	FindCartByUser(ctx context.Context, userID string) (*models.Cart, error)
	// InsertCart stores a new cart with version 1. ErrDuplicate means the
	// user already has one.
	InsertCart(ctx context.Context, cart *models.Cart) error
	// UpdateCartItems replaces the item list only if the stored version equals
	// expectedVersion, and bumps the version. Otherwise ErrVersionConflict.
	UpdateCartItems(ctx context.Context, cartID string, expectedVersion int64, items []models.CartItem) error

	// InsertOrder stores a new order. ErrDuplicate means an order with the same
	// user and idempotency key exists.
	InsertOrder(ctx context.Context, order *models.Order) error
	FindOrderByKey(ctx context.Context, userID, key string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)

	// Collections lists the collection names reachable through the backend
	Collections(ctx context.Context) ([]string, error)
	Driver() string
	Close(ctx context.Context) error
}

// Configured reports whether store has a working backend
func Configured(store Store) bool {
	return store != nil && store.Driver() != DriverNone
}
