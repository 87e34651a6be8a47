package order

import (
	"context"
	"time"

	"github.com/xenking/cafe-kiosk/internal/domain/product"
)

// SearchCond filters order searches. Nil fields contribute no predicate;
// Date matches the calendar day [Date 00:00, Date+24h) of the registration
// timestamp.
type SearchCond struct {
	Status *Status
	Date   *time.Time
}

// SortDirection orders a sorted field ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// SortSpec names a sortable order field and its direction.
type SortSpec struct {
	Field     string
	Direction SortDirection
}

// sortableFields lists the order fields callers may sort by.
var sortableFields = map[string]bool{
	"id":                 true,
	"status":             true,
	"totalPrice":         true,
	"registeredDateTime": true,
}

// Valid reports whether the spec names a sortable field.
func (s SortSpec) Valid() bool {
	return sortableFields[s.Field]
}

// PageRequest is a zero-indexed offset/limit page with an optional sort.
type PageRequest struct {
	Page int
	Size int
	Sort []SortSpec
}

// Offset returns the row offset of the page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is one page of order summaries plus paging metadata.
type Page struct {
	Content       []Response `json:"content"`
	Page          int        `json:"page"`
	Size          int        `json:"size"`
	TotalElements int64      `json:"totalElements"`
	TotalPages    int        `json:"totalPages"`
}

// QueryRepository builds read and aggregate views over persisted orders.
// Its operations run outside the write transaction and may use snapshot
// reads.
type QueryRepository interface {
	// SearchByID loads one order with its line items, or ErrNotFound.
	SearchByID(ctx context.Context, id int64) (*Order, error)

	// SearchProductsByOrderID returns the products of an order's line items,
	// one entry per line item in line-item order.
	SearchProductsByOrderID(ctx context.Context, id int64) ([]product.Product, error)

	// SearchByStatusAndDate returns orders matching the condition. Both
	// filters are optional; with neither set, every order is returned.
	SearchByStatusAndDate(ctx context.Context, cond SearchCond) ([]Order, error)

	// ListSummaries returns one summary per order with its full product list,
	// built from a single grouped join rather than per-order lookups.
	ListSummaries(ctx context.Context) ([]Response, error)

	// FindHighestTotalPriceOrder returns the order with the maximum total
	// price. Ties resolve to the lowest order ID.
	FindHighestTotalPriceOrder(ctx context.Context) (*Order, error)

	// SumTotalPriceByStatus sums the joined line-item product prices of all
	// orders in the given status.
	SumTotalPriceByStatus(ctx context.Context, status Status) (int64, error)

	// BulkUpdateStatusInRange sets the status of every order registered in
	// [start, end) and reports the number of rows touched. The write bypasses
	// per-order lifecycle handling.
	BulkUpdateStatusInRange(ctx context.Context, status Status, start, end time.Time) (int64, error)

	// PagedSearch returns one page of order summaries under the condition,
	// with the total count computed by a separate query under the same
	// filters.
	PagedSearch(ctx context.Context, cond SearchCond, page PageRequest) (*Page, error)
}
