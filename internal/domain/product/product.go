// Package product defines the catalog domain: product records, their type and
// selling-status enumerations, and the repository contract used to resolve
// product numbers during ordering.
package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a single product lookup matches nothing.
var ErrNotFound = errors.New("product not found")

// NotFoundError indicates that a product number referenced by an order request
// does not resolve to any catalog entry.
type NotFoundError struct {
	ProductNumber string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductNumber)
}

// Type classifies how a product is fulfilled. Bottled and bakery goods are
// backed by a stock record; handmade drinks are made to order and carry no
// inventory constraint.
type Type string

const (
	TypeHandmade Type = "HANDMADE"
	TypeBottle   Type = "BOTTLE"
	TypeBakery   Type = "BAKERY"
)

// StockTracked reports whether ordering a product of this type must deduct
// from a stock record.
func (t Type) StockTracked() bool {
	return t == TypeBottle || t == TypeBakery
}

// Valid reports whether t is one of the known product types.
func (t Type) Valid() bool {
	switch t {
	case TypeHandmade, TypeBottle, TypeBakery:
		return true
	}
	return false
}

// SellingStatus describes whether a product can currently be sold.
type SellingStatus string

const (
	StatusSelling     SellingStatus = "SELLING"
	StatusHold        SellingStatus = "HOLD"
	StatusStopSelling SellingStatus = "STOP_SELLING"
)

// Valid reports whether s is one of the known selling statuses.
func (s SellingStatus) Valid() bool {
	switch s {
	case StatusSelling, StatusHold, StatusStopSelling:
		return true
	}
	return false
}

// DisplayStatuses returns the selling statuses shown on the kiosk: products
// currently selling plus those temporarily on hold.
func DisplayStatuses() []SellingStatus {
	return []SellingStatus{StatusSelling, StatusHold}
}

// Product is a catalog entry. The product number is an opaque, monotonically
// increasing identifier assigned once at creation; prices are whole currency
// units and immutable within the ordering flow.
type Product struct {
	ID            int64
	ProductNumber string
	Type          Type
	SellingStatus SellingStatus
	Name          string
	Price         int64
}

// Repository defines catalog persistence operations.
type Repository interface {
	// FindAllByProductNumbers returns the products matching any of the given
	// numbers. Unmatched numbers are simply absent from the result.
	FindAllByProductNumbers(ctx context.Context, numbers []string) ([]Product, error)
	// FindAllBySellingStatuses returns products whose status is in the set.
	FindAllBySellingStatuses(ctx context.Context, statuses []SellingStatus) ([]Product, error)
	// FindLatestProductNumber returns the highest assigned product number, or
	// "" when the catalog is empty.
	FindLatestProductNumber(ctx context.Context) (string, error)
	// Create persists a new product and fills in its generated ID.
	Create(ctx context.Context, p *Product) error
}

// Response is the outward projection of a product used in API payloads and
// order summaries.
type Response struct {
	ID            int64         `json:"id"`
	ProductNumber string        `json:"productNumber"`
	Type          Type          `json:"type"`
	SellingStatus SellingStatus `json:"sellingStatus"`
	Name          string        `json:"name"`
	Price         int64         `json:"price"`
}

// ResponseOf projects a product into its API representation.
func ResponseOf(p Product) Response {
	return Response{
		ID:            p.ID,
		ProductNumber: p.ProductNumber,
		Type:          p.Type,
		SellingStatus: p.SellingStatus,
		Name:          p.Name,
		Price:         p.Price,
	}
}
