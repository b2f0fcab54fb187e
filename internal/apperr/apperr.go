// Package apperr defines the error categories shared by every domain package.
//
// Domain errors wrap one of the sentinels below so callers can classify them
// with errors.Is regardless of which package produced them:
//
//	var ErrEmptyOrder = fmt.Errorf("%w: add at least one item", apperr.ErrValidation)
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks rejected input. Nothing was changed.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing customer, order, menu or catalog item.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks a failed read or write against the document store.
	ErrPersistence = errors.New("persistence failure")
)

// Validation returns a validation error with the given message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns a not-found error with the given message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Persistence wraps a store failure for op.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// HTTPStatus maps an error category to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPersistence):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
