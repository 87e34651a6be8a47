// Package order implements the order aggregate and the order-creation
// workflow: resolving requested product numbers, deducting stock for tracked
// product types, and pricing the resulting order.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/cafe-kiosk/internal/domain/product"
)

// ErrNotFound is returned when an order lookup matches nothing.
var ErrNotFound = errors.New("order not found")

// Status is the lifecycle state of an order.
// Orders start in INIT and move to PAYMENT_COMPLETED, then COMPLETED; an
// order can be CANCELED from INIT or PAYMENT_COMPLETED.
type Status string

const (
	StatusInit             Status = "INIT"
	StatusCanceled         Status = "CANCELED"
	StatusPaymentCompleted Status = "PAYMENT_COMPLETED"
	StatusPaymentFailed    Status = "PAYMENT_FAILED"
	StatusReceived         Status = "RECEIVED"
	StatusCompleted        Status = "COMPLETED"
)

// Valid reports whether s is one of the known order statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusInit, StatusCanceled, StatusPaymentCompleted,
		StatusPaymentFailed, StatusReceived, StatusCompleted:
		return true
	}
	return false
}

// LineItem is one requested unit of a product within an order. A product
// number appearing N times in a request yields N line items; quantities are
// never folded at this level.
type LineItem struct {
	ID      int64
	Product product.Product
}

// Order is a priced customer order with its ordered line items.
// TotalPrice is computed at creation and never changes afterwards.
type Order struct {
	ID           int64
	Status       Status
	TotalPrice   int64
	RegisteredAt time.Time
	LineItems    []LineItem
}

// New builds an INIT order from the resolved products in request order.
// products must contain one entry per requested unit, duplicates included.
func New(products []product.Product, registeredAt time.Time) *Order {
	items := make([]LineItem, len(products))
	var total int64
	for i, p := range products {
		items[i] = LineItem{Product: p}
		total += p.Price
	}

	return &Order{
		Status:       StatusInit,
		TotalPrice:   total,
		RegisteredAt: registeredAt,
		LineItems:    items,
	}
}

// Products returns the product of each line item in order.
func (o *Order) Products() []product.Product {
	products := make([]product.Product, len(o.LineItems))
	for i, item := range o.LineItems {
		products[i] = item.Product
	}
	return products
}

// Repository defines write operations for orders.
type Repository interface {
	// Create persists the order and its line items atomically, filling in the
	// generated order ID.
	Create(ctx context.Context, o *Order) error
}

// Response is the outward projection of an order returned to callers.
type Response struct {
	ID           int64              `json:"id"`
	TotalPrice   int64              `json:"totalPrice"`
	RegisteredAt time.Time          `json:"registeredDateTime"`
	Products     []product.Response `json:"products"`
}

// ResponseOf projects an order into its API representation.
func ResponseOf(o *Order) Response {
	products := make([]product.Response, len(o.LineItems))
	for i, item := range o.LineItems {
		products[i] = product.ResponseOf(item.Product)
	}
	return Response{
		ID:           o.ID,
		TotalPrice:   o.TotalPrice,
		RegisteredAt: o.RegisteredAt,
		Products:     products,
	}
}
