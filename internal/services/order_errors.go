package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderValidation indicates customer-supplied fields failed validation.
	ErrOrderValidation = errors.New("order: validation failed")
	// ErrCartRejected indicates the cart could not be priced against the catalog.
	ErrCartRejected = errors.New("order: cart rejected")
	// ErrOrderPersistence indicates the header or line write failed with no recovery.
	ErrOrderPersistence = errors.New("order: persistence failed")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates optimistic concurrency conflicts or duplicates.
	ErrOrderConflict = errors.New("order: conflict")
)

// ValidationError aggregates per-field messages so the storefront can mark
// every bad field in one round trip.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	return fmt.Sprintf("order: validation failed: %s", strings.Join(keys, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrOrderValidation
}

// Cart rejection reasons surfaced to programmatic clients.
const (
	CartRejectItemNotFound    = "item_not_found"
	CartRejectItemUnavailable = "item_unavailable"
	CartRejectOutOfStock      = "out_of_stock"
	CartRejectTooLarge        = "cart_too_large"
)

// CartRejectionError reports why a cart was refused before any write.
type CartRejectionError struct {
	Reason string
	ItemID string
}

func (e *CartRejectionError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("order: cart rejected: %s", e.Reason)
	}
	return fmt.Sprintf("order: cart rejected: %s (%s)", e.Reason, e.ItemID)
}

func (e *CartRejectionError) Unwrap() error {
	return ErrCartRejected
}
