package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/SigNoz/skincare-shop/internal/db"
	"github.com/SigNoz/skincare-shop/internal/metrics"
	"github.com/SigNoz/skincare-shop/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// UserService handles registration and login. It issues no session; callers
// pass the returned user id on every later request.
type UserService struct {
	store    db.Store
	metrics  *metrics.AppMetrics
	log      zerolog.Logger
	hashCost int
}

// NewUserService creates a new user service
func NewUserService(store db.Store, metrics *metrics.AppMetrics, log zerolog.Logger) *UserService {
	return &UserService{
		store:    store,
		metrics:  metrics,
		log:      log,
		hashCost: bcrypt.DefaultCost,
	}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Register creates a new account. Emails are compared exactly as given.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !validEmail(req.Email) {
		return nil, fmt.Errorf("%w: email is not valid", ErrValidation)
	}
	if req.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	_, err := s.store.FindUserByEmail(ctx, req.Email)
	if err == nil {
		return nil, ErrConflict
	}
	if !errors.Is(err, db.ErrNoDocument) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password is too long", ErrValidation)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        req.Email,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		// lost a race against a concurrent registration of the same email
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.UsersRegistered.Add(ctx, 1, s.metrics.Attrs())
	s.log.Info().Str("user_id", user.ID).Msg("user registered")

	return &models.AuthResponse{UserID: user.ID, Name: user.Name, Email: user.Email}, nil
}

// Login checks credentials. An unknown email and a wrong password produce the
// same ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.store.FindUserByEmail(ctx, req.Email)
	if errors.Is(err, db.ErrNoDocument) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrUnauthorized
	}

	return &models.AuthResponse{UserID: user.ID, Name: user.Name, Email: user.Email}, nil
}
