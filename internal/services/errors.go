package services

import "errors"

var (
	// ErrValidation marks input rejected before touching the store
	ErrValidation = errors.New("invalid input")
	// ErrConflict is returned when registering an email that is already taken
	ErrConflict = errors.New("email already registered")
	// ErrUnauthorized covers both an unknown email and a wrong password
	ErrUnauthorized = errors.New("invalid email or password")
	// ErrNotFound is returned when adding an unknown product to a cart
	ErrNotFound = errors.New("product not found")
	// ErrInvalidState is returned by checkout on an empty or missing cart
	ErrInvalidState = errors.New("cart is empty")
	// ErrCartBusy is returned when a cart kept changing under every retry
	ErrCartBusy = errors.New("cart is being modified concurrently")
)
