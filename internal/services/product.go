package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SigNoz/skincare-shop/internal/db"
	"github.com/SigNoz/skincare-shop/internal/metrics"
	"github.com/SigNoz/skincare-shop/internal/models"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// ProductService handles catalog operations
type ProductService struct {
	store   db.Store
	metrics *metrics.AppMetrics
	log     zerolog.Logger
}

// NewProductService creates a new product service
func NewProductService(store db.Store, metrics *metrics.AppMetrics, log zerolog.Logger) *ProductService {
	return &ProductService{
		store:   store,
		metrics: metrics,
		log:     log,
	}
}

// CreateProduct adds a product to the catalog and returns it with its id
func (s *ProductService) CreateProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	title := strings.TrimSpace(req.Title)
	category := strings.TrimSpace(req.Category)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrValidation)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}

	product := &models.Product{
		Title:       title,
		Description: req.Description,
		Price:       req.Price,
		Category:    category,
		ImageURL:    req.ImageURL,
		InStock:     true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.InsertProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.metrics.ProductsCreated.Add(ctx, 1, s.metrics.Attrs(attribute.String("product.category", category)))
	return product, nil
}

// ListProducts returns the whole catalog. Without a store the catalog is empty.
func (s *ProductService) ListProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if errors.Is(err, db.ErrUnconfigured) {
		return []models.Product{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProduct returns a product by id
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.store.FindProduct(ctx, id)
	if errors.Is(err, db.ErrNoDocument) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}
