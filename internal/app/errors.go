package app

import "errors"

// Failure kinds surfaced to the HTTP layer. Parameterized failures wrap
// these with fmt.Errorf so handlers can match with errors.Is.
var (
	ErrMissingFields      = errors.New("missing fields")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailAlreadyUsed   = errors.New("email already used")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrCategoryNotFound = errors.New("category not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrOrderNotFound    = errors.New("order not found")

	ErrNoItems           = errors.New("no items")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrMissingContent    = errors.New("missing content")
)
