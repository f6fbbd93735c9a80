package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SigNoz/skincare-shop/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore keeps all four collections in process. Records are copied on
// the way in and out so callers never share slices with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]models.User
	usersByEmail map[string]string
	products     map[string]models.Product
	productOrder []string
	carts        map[string]models.Cart
	cartsByUser  map[string]string
	orders       map[string]models.Order
	ordersByKey  map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]models.User),
		usersByEmail: make(map[string]string),
		products:     make(map[string]models.Product),
		carts:        make(map[string]models.Cart),
		cartsByUser:  make(map[string]string),
		orders:       make(map[string]models.Order),
		ordersByKey:  make(map[string]string),
	}
}

func orderKey(userID, key string) string {
	return userID + "\x00" + key
}

func copyCartItems(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out
}

func copyOrder(o models.Order) models.Order {
	items := make([]models.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

func (m *MemoryStore) InsertUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.usersByEmail[user.Email]; ok {
		return ErrDuplicate
	}
	user.ID = uuid.NewString()
	m.users[user.ID] = *user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.usersByEmail[email]
	if !ok {
		return nil, ErrNoDocument
	}
	u := m.users[id]
	return &u, nil
}

func (m *MemoryStore) InsertProduct(ctx context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product.ID = uuid.NewString()
	m.products[product.ID] = *product
	m.productOrder = append(m.productOrder, product.ID)
	return nil
}

func (m *MemoryStore) FindProduct(ctx context.Context, id string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNoDocument
	}
	return &p, nil
}

func (m *MemoryStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Product, 0, len(m.productOrder))
	for _, id := range m.productOrder {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// DeleteProduct removes a product. There is no catalog endpoint for it; it
// exists so tests can model products disappearing from under a cart.
func (m *MemoryStore) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return ErrNoDocument
	}
	delete(m.products, id)
	return nil
}

// SetProductPrice changes a stored price; same purpose as DeleteProduct
func (m *MemoryStore) SetProductPrice(ctx context.Context, id string, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return ErrNoDocument
	}
	p.Price = price
	m.products[id] = p
	return nil
}

func (m *MemoryStore) FindCartByUser(ctx context.Context, userID string) (*models.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.cartsByUser[userID]
	if !ok {
		return nil, ErrNoDocument
	}
	c := m.carts[id]
	c.Items = copyCartItems(c.Items)
	return &c, nil
}

func (m *MemoryStore) InsertCart(ctx context.Context, cart *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cartsByUser[cart.UserID]; ok {
		return ErrDuplicate
	}
	cart.ID = uuid.NewString()
	cart.Version = 1
	cart.UpdatedAt = time.Now().UTC()
	stored := *cart
	stored.Items = copyCartItems(cart.Items)
	m.carts[cart.ID] = stored
	m.cartsByUser[cart.UserID] = cart.ID
	return nil
}

func (m *MemoryStore) UpdateCartItems(ctx context.Context, cartID string, expectedVersion int64, items []models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartID]
	if !ok {
		return ErrNoDocument
	}
	if c.Version != expectedVersion {
		return ErrVersionConflict
	}
	c.Items = copyCartItems(items)
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	m.carts[cartID] = c
	return nil
}

func (m *MemoryStore) InsertOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := orderKey(order.UserID, order.IdempotencyKey)
	if order.IdempotencyKey != "" {
		if _, ok := m.ordersByKey[k]; ok {
			return ErrDuplicate
		}
	}
	order.ID = uuid.NewString()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	m.orders[order.ID] = copyOrder(*order)
	if order.IdempotencyKey != "" {
		m.ordersByKey[k] = order.ID
	}
	return nil
}

func (m *MemoryStore) FindOrderByKey(ctx context.Context, userID, key string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.ordersByKey[orderKey(userID, key)]
	if !ok {
		return nil, ErrNoDocument
	}
	o := copyOrder(m.orders[id])
	return &o, nil
}

func (m *MemoryStore) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Order, 0)
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// OrderCount returns the number of stored orders
func (m *MemoryStore) OrderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

func (m *MemoryStore) Collections(ctx context.Context) ([]string, error) {
	return []string{CollectionUsers, CollectionProducts, CollectionCarts, CollectionOrders}, nil
}

func (m *MemoryStore) Driver() string { return DriverMemory }

func (m *MemoryStore) Close(ctx context.Context) error { return nil }
