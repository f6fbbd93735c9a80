package db

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SigNoz/skincare-shop/internal/models"
	"github.com/XSAM/otelsql"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

//go:embed schema.sql
var schemaSQL string

// MySQLStore keeps each collection in its own table. JSON columns hold the
// nested item lists so a cart or order is still read and written as one row.
type MySQLStore struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ Store = (*MySQLStore)(nil)

// NewMySQLStore creates a new database connection with OpenTelemetry instrumentation
func NewMySQLStore(ctx context.Context, dsn, serviceName string, log zerolog.Logger) (*MySQLStore, error) {
	// Register otelsql wrapper for MySQL driver
	driverName, err := otelsql.Register("mysql",
		otelsql.WithAttributes(
			attribute.String("db.system", "mysql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(
		attribute.String("db.system", "mysql"),
		attribute.String("service.name", serviceName),
	)); err != nil {
		log.Warn().Err(err).Msg("failed to register otelsql stats metrics")
	}

	s := &MySQLStore{db: db, log: log}
	if err := s.InitSchema(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema initializes the database schema
// It splits the SQL into individual statements and executes them one by one
func (s *MySQLStore) InitSchema(ctx context.Context, schema string) error {
	for i, stmt := range splitSQLStatements(schema) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement %d: %w\nStatement: %s", i+1, err, stmt)
		}
	}
	s.log.Info().Msg("database schema initialized")
	return nil
}

// splitSQLStatements splits a SQL string into individual statements
func splitSQLStatements(sqlText string) []string {
	// Remove comments (lines starting with --)
	lines := strings.Split(sqlText, "\n")
	var cleanedLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
			cleanedLines = append(cleanedLines, line)
		}
	}

	var result []string
	for _, stmt := range strings.Split(strings.Join(cleanedLines, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			result = append(result, stmt)
		}
	}
	return result
}

func mysqlErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoDocument
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return ErrDuplicate
	}
	return err
}

func (s *MySQLStore) InsertUser(ctx context.Context, user *models.User) error {
	id := uuid.NewString()
	query := "INSERT INTO users (id, name, email, password_hash, address, phone, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	if _, err := s.db.ExecContext(ctx, query, id, user.Name, user.Email, user.PasswordHash,
		user.Address, user.Phone, user.IsActive, user.CreatedAt); err != nil {
		return mysqlErr(err)
	}
	user.ID = id
	return nil
}

func (s *MySQLStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT id, name, email, password_hash, address, phone, is_active, created_at FROM users WHERE email = ?"
	var u models.User
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Address, &u.Phone, &u.IsActive, &u.CreatedAt,
	)
	if err != nil {
		return nil, mysqlErr(err)
	}
	return &u, nil
}

func (s *MySQLStore) InsertProduct(ctx context.Context, product *models.Product) error {
	id := uuid.NewString()
	query := "INSERT INTO products (id, title, description, price, category, image_url, in_stock, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	if _, err := s.db.ExecContext(ctx, query, id, product.Title, product.Description, product.Price,
		product.Category, product.ImageURL, product.InStock, product.CreatedAt); err != nil {
		return mysqlErr(err)
	}
	product.ID = id
	return nil
}

const productColumns = "id, title, description, price, category, image_url, in_stock, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.InStock, &p.CreatedAt)
	return p, err
}

func (s *MySQLStore) FindProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if err != nil {
		return nil, mysqlErr(err)
	}
	return &p, nil
}

func (s *MySQLStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	out := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *MySQLStore) FindCartByUser(ctx context.Context, userID string) (*models.Cart, error) {
	query := "SELECT id, user_id, items, version, updated_at FROM carts WHERE user_id = ?"
	var (
		cart  models.Cart
		items []byte
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&cart.ID, &cart.UserID, &items, &cart.Version, &cart.UpdatedAt)
	if err != nil {
		return nil, mysqlErr(err)
	}
	if err := json.Unmarshal(items, &cart.Items); err != nil {
		return nil, fmt.Errorf("failed to decode cart items: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

func encodeItems(items any) ([]byte, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}
	return b, nil
}

func (s *MySQLStore) InsertCart(ctx context.Context, cart *models.Cart) error {
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	items, err := encodeItems(cart.Items)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	query := "INSERT INTO carts (id, user_id, items, version, updated_at) VALUES (?, ?, ?, 1, ?)"
	if _, err := s.db.ExecContext(ctx, query, id, cart.UserID, items, now); err != nil {
		return mysqlErr(err)
	}
	cart.ID = id
	cart.Version = 1
	cart.UpdatedAt = now
	return nil
}

func (s *MySQLStore) UpdateCartItems(ctx context.Context, cartID string, expectedVersion int64, items []models.CartItem) error {
	if items == nil {
		items = []models.CartItem{}
	}
	encoded, err := encodeItems(items)
	if err != nil {
		return err
	}
	query := "UPDATE carts SET items = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?"
	res, err := s.db.ExecContext(ctx, query, encoded, time.Now().UTC(), cartID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM carts WHERE id = ?)", cartID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check cart: %w", err)
	}
	if !exists {
		return ErrNoDocument
	}
	return ErrVersionConflict
}

func (s *MySQLStore) InsertOrder(ctx context.Context, order *models.Order) error {
	items, err := encodeItems(order.Items)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	query := "INSERT INTO orders (id, user_id, items, total, status, idempotency_key, cart_version, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	if _, err := s.db.ExecContext(ctx, query, id, order.UserID, items, order.Total,
		order.Status, order.IdempotencyKey, order.CartVersion, order.CreatedAt); err != nil {
		return mysqlErr(err)
	}
	order.ID = id
	return nil
}

const orderColumns = "id, user_id, items, total, status, idempotency_key, cart_version, created_at"

func scanOrder(row rowScanner) (models.Order, error) {
	var (
		o     models.Order
		items []byte
	)
	if err := row.Scan(&o.ID, &o.UserID, &items, &o.Total, &o.Status, &o.IdempotencyKey, &o.CartVersion, &o.CreatedAt); err != nil {
		return o, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("failed to decode order items: %w", err)
	}
	return o, nil
}

func (s *MySQLStore) FindOrderByKey(ctx context.Context, userID, key string) (*models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE user_id = ? AND idempotency_key = ?"
	o, err := scanOrder(s.db.QueryRowContext(ctx, query, userID, key))
	if err != nil {
		return nil, mysqlErr(err)
	}
	return &o, nil
}

func (s *MySQLStore) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	out := make([]models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *MySQLStore) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *MySQLStore) Driver() string { return DriverMySQL }

func (s *MySQLStore) Close(ctx context.Context) error {
	return s.db.Close()
}
