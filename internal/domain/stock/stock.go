// Package stock holds the inventory ledger for stock-tracked products.
package stock

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no stock record exists for a product number.
var ErrNotFound = errors.New("stock not found")

// InsufficientError indicates a deduction was requested for more units than
// the stock record holds. It is a validation-class failure: the enclosing
// transaction must be rolled back and the caller told the order cannot
// complete.
type InsufficientError struct {
	ProductNumber string
	Requested     int64
	Available     int64
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductNumber, e.Requested, e.Available)
}

// Stock is the available quantity for one stock-tracked product.
// Quantity never goes negative; Deduct enforces the invariant.
type Stock struct {
	ID            int64
	ProductNumber string
	Quantity      int64
}

// New creates a stock record for the given product number.
func New(productNumber string, quantity int64) Stock {
	return Stock{ProductNumber: productNumber, Quantity: quantity}
}

// Deduct subtracts quantity units. It fails with InsufficientError when the
// request exceeds the available quantity and rejects non-positive requests.
func (s *Stock) Deduct(quantity int64) error {
	if quantity <= 0 {
		return errors.Errorf("deduction quantity must be positive, got %d", quantity)
	}
	if quantity > s.Quantity {
		return &InsufficientError{
			ProductNumber: s.ProductNumber,
			Requested:     quantity,
			Available:     s.Quantity,
		}
	}
	s.Quantity -= quantity
	return nil
}

// Repository defines persistence operations for stock records.
type Repository interface {
	// FindAllByProductNumbers returns the stock rows for the given product
	// numbers. Inside a transaction the rows are locked until commit, so
	// concurrent deductions against the same product serialize.
	FindAllByProductNumbers(ctx context.Context, numbers []string) ([]Stock, error)
	// UpdateQuantity writes back the quantity of a deducted stock record.
	UpdateQuantity(ctx context.Context, s Stock) error
	// Create persists a new stock record and fills in its generated ID.
	Create(ctx context.Context, s *Stock) error
}
