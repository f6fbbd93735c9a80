package db

import (
	"context"

	"github.com/SigNoz/skincare-shop/internal/models"
)

type unconfiguredStore struct{}

// Unconfigured returns a Store whose every operation fails with ErrUnconfigured
func Unconfigured() Store {
	return unconfiguredStore{}
}

func (unconfiguredStore) InsertUser(context.Context, *models.User) error { return ErrUnconfigured }

func (unconfiguredStore) FindUserByEmail(context.Context, string) (*models.User, error) {
	return nil, ErrUnconfigured
}

func (unconfiguredStore) InsertProduct(context.Context, *models.Product) error {
	return ErrUnconfigured
}

func (unconfiguredStore) FindProduct(context.Context, string) (*models.Product, error) {
	return nil, ErrUnconfigured
}

func (unconfiguredStore) ListProducts(context.Context) ([]models.Product, error) {
	return nil, ErrUnconfigured
}

func (unconfiguredStore) FindCartByUser(context.Context, string) (*models.Cart, error) {
	return nil, ErrUnconfigured
}

func (unconfiguredStore) InsertCart(context.Context, *models.Cart) error { return ErrUnconfigured }

func (unconfiguredStore) UpdateCartItems(context.Context, string, int64, []models.CartItem) error {
	return ErrUnconfigured
}

func (unconfiguredStore) InsertOrder(context.Context, *models.Order) error { return ErrUnconfigured }

func (unconfiguredStore) FindOrderByKey(context.Context, string, string) (*models.Order, error) {
	return nil, ErrUnconfigured
}

func (unconfiguredStore) ListOrdersByUser(context.Context, string) ([]models.Order, error) {
	return nil, ErrUnconfigured
}

func (unconfiguredStore) Collections(context.Context) ([]string, error) {
	return nil, ErrUnconfigured
}

func (unconfiguredStore) Driver() string { return DriverNone }

func (unconfiguredStore) Close(context.Context) error { return nil }
