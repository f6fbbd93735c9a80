package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/SigNoz/skincare-shop/internal/db"
	"github.com/SigNoz/skincare-shop/internal/metrics"
	"github.com/SigNoz/skincare-shop/internal/middleware"
	"github.com/SigNoz/skincare-shop/internal/models"
	"github.com/SigNoz/skincare-shop/internal/services"
	"github.com/SigNoz/skincare-shop/pkg/config"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// App holds application dependencies
type App struct {
	config         *config.Config
	store          db.Store
	metrics        *metrics.AppMetrics
	log            zerolog.Logger
	productService *services.ProductService
	cartService    *services.CartService
	orderService   *services.OrderService
	userService    *services.UserService
	chatService    *services.ChatService
}

// NewApp creates a new application instance
func NewApp(
	cfg *config.Config,
	store db.Store,
	m *metrics.AppMetrics,
	log zerolog.Logger,
	ps *services.ProductService,
	cs *services.CartService,
	orders *services.OrderService,
	us *services.UserService,
	chat *services.ChatService,
) *App {
	return &App{
		config:         cfg,
		store:          store,
		metrics:        m,
		log:            log,
		productService: ps,
		cartService:    cs,
		orderService:   orders,
		userService:    us,
		chatService:    chat,
	}
}

// Handler returns the full HTTP handler. CORS wraps the router itself so
// preflight requests are answered even for routes that only accept POST.
func (a *App) Handler() http.Handler {
	r := mux.NewRouter()
	a.SetupRoutes(r)
	return middleware.CORSMiddleware(a.config.CORSAllowedOrigins)(r)
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	// Middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggerMiddleware(a.log))
	r.Use(middleware.MetricsMiddleware(a.metrics))

	r.HandleFunc("/", a.RootHandler).Methods(http.MethodGet)
	r.HandleFunc("/test", a.StoreProbeHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", a.HealthHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Auth
	api.HandleFunc("/auth/register", a.RegisterHandler).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", a.LoginHandler).Methods(http.MethodPost)

	// Products
	api.HandleFunc("/products", a.CreateProductHandler).Methods(http.MethodPost)
	api.HandleFunc("/products", a.ListProductsHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/{product_id}", a.GetProductHandler).Methods(http.MethodGet)

	// Cart
	api.HandleFunc("/cart/add", a.AddToCartHandler).Methods(http.MethodPost)
	api.HandleFunc("/cart/{user_id}", a.GetCartHandler).Methods(http.MethodGet)

	// Orders
	api.HandleFunc("/checkout", a.CheckoutHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{user_id}", a.ListOrdersHandler).Methods(http.MethodGet)

	// Chat
	api.HandleFunc("/chat", a.ChatHandler).Methods(http.MethodPost)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeError maps service errors to statuses. Anything unrecognised is logged
// and reported as a 500 without its internals.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConflict):
		writeDetail(w, http.StatusBadRequest, "Email sudah terdaftar")
	case errors.Is(err, services.ErrUnauthorized):
		writeDetail(w, http.StatusUnauthorized, "Email atau password salah")
	case errors.Is(err, services.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Produk tidak ditemukan")
	case errors.Is(err, services.ErrInvalidState):
		writeDetail(w, http.StatusBadRequest, "Keranjang kosong")
	case errors.Is(err, services.ErrCartBusy):
		writeDetail(w, http.StatusConflict, "Keranjang sedang diperbarui, coba lagi")
	case errors.Is(err, db.ErrUnconfigured):
		writeDetail(w, http.StatusServiceUnavailable, "Database not configured")
	default:
		a.log.Error().Err(err).
			Str("request_id", middleware.RequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// RootHandler handles GET /
func (a *App) RootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Skincare E-commerce Backend running"})
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

const maxProbeErrorRunes = 80

// truncateRunes cuts s to at most n runes without splitting a character
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// StoreProbeHandler handles GET /test. It always answers 200 and reports the
// store state in the body.
func (a *App) StoreProbeHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"backend": "ok"}

	if !db.Configured(a.store) {
		resp["db"] = "not_configured"
		resp["collections"] = []string{}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	names, err := a.store.Collections(r.Context())
	if err != nil {
		resp["db"] = "error: " + truncateRunes(err.Error(), maxProbeErrorRunes)
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if names == nil {
		names = []string{}
	}
	resp["db"] = "ok"
	resp["driver"] = a.store.Driver()
	resp["collections"] = names
	writeJSON(w, http.StatusOK, resp)
}

// RegisterHandler handles POST /api/auth/register
func (a *App) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := a.userService.Register(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// LoginHandler handles POST /api/auth/login
func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := a.userService.Login(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateProductHandler handles POST /api/products
func (a *App) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProductRequest
	if !decode(w, r, &req) {
		return
	}

	product, err := a.productService.CreateProduct(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"product_id": product.ID})
}

// ListProductsHandler handles GET /api/products
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := a.productService.ListProducts(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProductHandler handles GET /api/products/{product_id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	product, err := a.productService.GetProduct(r.Context(), mux.Vars(r)["product_id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// AddToCartHandler handles POST /api/cart/add
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddToCartRequest
	if !decode(w, r, &req) {
		return
	}

	if err := a.cartService.AddItem(r.Context(), req.UserID, req.ProductID, req.Quantity); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetCartHandler handles GET /api/cart/{user_id}
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	cart, err := a.cartService.GetCart(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// CheckoutHandler handles POST /api/checkout
func (a *App) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutRequest
	if !decode(w, r, &req) {
		return
	}
	key := req.IdempotencyKey
	if key == "" {
		key = r.Header.Get("Idempotency-Key")
	}

	order, err := a.orderService.Checkout(r.Context(), req.UserID, key)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.CheckoutResponse{
		OrderID: order.ID,
		Total:   order.Total,
		Status:  "created",
	})
}

// ListOrdersHandler handles GET /api/orders/{user_id}
func (a *App) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := a.orderService.ListOrders(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// ChatHandler handles POST /api/chat
func (a *App) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, models.ChatResponse{Answer: a.chatService.Answer(r.Context(), req.Question)})
}
