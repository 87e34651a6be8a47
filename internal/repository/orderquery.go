package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/cafe-kiosk/internal/domain/order"
	"github.com/xenking/cafe-kiosk/internal/domain/product"
)

const (
	searchOrderByIDSQL = `SELECT id, status, total_price, registered_at
		FROM orders WHERE id = $1`

	searchOrderProductsSQL = `SELECT op.id, p.id, p.product_number, p.type, p.selling_status, p.name, p.price
		FROM order_products op
		JOIN products p ON p.id = op.product_id
		WHERE op.order_id = $1
		ORDER BY op.id`

	listSummariesSQL = `SELECT o.id, o.total_price, o.registered_at,
			p.id, p.product_number, p.type, p.selling_status, p.name, p.price
		FROM orders o
		LEFT JOIN order_products op ON op.order_id = o.id
		LEFT JOIN products p ON p.id = op.product_id
		ORDER BY o.id, op.id`

	highestTotalPriceOrderIDSQL = `SELECT id FROM orders
		ORDER BY total_price DESC, id ASC LIMIT 1`

	sumTotalPriceByStatusSQL = `SELECT COALESCE(SUM(p.price), 0)
		FROM orders o
		JOIN order_products op ON op.order_id = o.id
		JOIN products p ON p.id = op.product_id
		WHERE o.status = $1`

	bulkUpdateStatusSQL = `UPDATE orders SET status = $1, updated_at = now()
		WHERE registered_at >= $2 AND registered_at < $3`
)

// sortColumns whitelists the sortable order fields. Sorting by anything else
// is rejected instead of being interpolated into SQL.
var sortColumns = map[string]string{
	"id":                 "id",
	"status":             "status",
	"totalPrice":         "total_price",
	"registeredDateTime": "registered_at",
}

var _ order.QueryRepository = (*OrderQueryRepository)(nil)

// OrderQueryRepository builds read and aggregate projections over persisted
// orders. All queries run on the pool outside the write transaction.
type OrderQueryRepository struct {
	pool *pgxpool.Pool
}

// NewOrderQueryRepository returns an OrderQueryRepository over the given pool.
func NewOrderQueryRepository(pool *pgxpool.Pool) *OrderQueryRepository {
	return &OrderQueryRepository{pool: pool}
}

// SearchByID loads one order with its line items in request order.
func (r *OrderQueryRepository) SearchByID(ctx context.Context, id int64) (*order.Order, error) {
	var o order.Order
	var status string
	err := r.pool.QueryRow(ctx, searchOrderByIDSQL, id).Scan(
		&o.ID, &status, &o.TotalPrice, &o.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("searching order %d: %w", id, err)
	}
	o.Status = order.Status(status)

	items, err := r.lineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.LineItems = items
	return &o, nil
}

// SearchProductsByOrderID returns the product of each line item of an order,
// one entry per line item.
func (r *OrderQueryRepository) SearchProductsByOrderID(ctx context.Context, id int64) ([]product.Product, error) {
	items, err := r.lineItems(ctx, id)
	if err != nil {
		return nil, err
	}

	products := make([]product.Product, len(items))
	for i, item := range items {
		products[i] = item.Product
	}
	return products, nil
}

// SearchByStatusAndDate returns orders matching the optional status and
// calendar-day filters. Line items are not loaded.
func (r *OrderQueryRepository) SearchByStatusAndDate(ctx context.Context, cond order.SearchCond) ([]order.Order, error) {
	where, args := buildOrderFilter(cond)
	query := `SELECT id, status, total_price, registered_at FROM orders` + where + ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListSummaries builds one summary per order with its full product list from
// a single grouped join, avoiding one line-item query per order.
func (r *OrderQueryRepository) ListSummaries(ctx context.Context) ([]order.Response, error) {
	rows, err := r.pool.Query(ctx, listSummariesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing order summaries: %w", err)
	}
	defer rows.Close()

	var (
		summaries []order.Response
		index     = make(map[int64]int)
	)
	for rows.Next() {
		var (
			id           int64
			totalPrice   int64
			registeredAt time.Time
			p            nullableProduct
		)
		err := rows.Scan(&id, &totalPrice, &registeredAt,
			&p.ID, &p.ProductNumber, &p.Type, &p.SellingStatus, &p.Name, &p.Price)
		if err != nil {
			return nil, fmt.Errorf("scanning order summary row: %w", err)
		}

		pos, ok := index[id]
		if !ok {
			pos = len(summaries)
			index[id] = pos
			summaries = append(summaries, order.Response{
				ID:           id,
				TotalPrice:   totalPrice,
				RegisteredAt: registeredAt,
				Products:     []product.Response{},
			})
		}
		if resp, ok := p.response(); ok {
			summaries[pos].Products = append(summaries[pos].Products, resp)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing order summaries: %w", err)
	}
	return summaries, nil
}

// FindHighestTotalPriceOrder returns the order with the maximum total price.
// Ties resolve to the lowest order ID.
func (r *OrderQueryRepository) FindHighestTotalPriceOrder(ctx context.Context) (*order.Order, error) {
	var id int64
	err := r.pool.QueryRow(ctx, highestTotalPriceOrderIDSQL).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding highest total price order: %w", err)
	}
	return r.SearchByID(ctx, id)
}

// SumTotalPriceByStatus sums the joined line-item product prices of all
// orders in the given status.
func (r *OrderQueryRepository) SumTotalPriceByStatus(ctx context.Context, status order.Status) (int64, error) {
	var sum int64
	err := r.pool.QueryRow(ctx, sumTotalPriceByStatusSQL, string(status)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("summing total price for status %s: %w", status, err)
	}
	return sum, nil
}

// BulkUpdateStatusInRange sets the status of every order registered in
// [start, end) and reports the number of rows touched.
func (r *OrderQueryRepository) BulkUpdateStatusInRange(ctx context.Context, status order.Status, start, end time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, bulkUpdateStatusSQL, string(status), start, end)
	if err != nil {
		return 0, fmt.Errorf("bulk updating order status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PagedSearch returns one page of order summaries under the condition. The
// total count comes from a separate query under the same filters.
func (r *OrderQueryRepository) PagedSearch(ctx context.Context, cond order.SearchCond, page order.PageRequest) (*order.Page, error) {
	if page.Size <= 0 {
		return nil, errors.New("page size must be positive")
	}

	orderBy, err := buildOrderBy(page.Sort)
	if err != nil {
		return nil, err
	}

	where, args := buildOrderFilter(cond)

	query := fmt.Sprintf(
		`SELECT id, status, total_price, registered_at FROM orders%s%s LIMIT $%d OFFSET $%d`,
		where, orderBy, len(args)+1, len(args)+2,
	)
	rows, err := r.pool.Query(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("searching order page: %w", err)
	}
	pageOrders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("scanning order page: %w", err)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM orders` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}

	content, err := r.summariesFor(ctx, pageOrders)
	if err != nil {
		return nil, err
	}

	return &order.Page{
		Content:       content,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: total,
		TotalPages:    totalPages(total, page.Size),
	}, nil
}

// summariesFor loads the line items of the given orders in one batched query
// and assembles full responses.
func (r *OrderQueryRepository) summariesFor(ctx context.Context, orders []order.Order) ([]order.Response, error) {
	content := make([]order.Response, len(orders))
	if len(orders) == 0 {
		return content, nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		content[i] = order.Response{
			ID:           o.ID,
			TotalPrice:   o.TotalPrice,
			RegisteredAt: o.RegisteredAt,
			Products:     []product.Response{},
		}
	}

	const batchItemsSQL = `SELECT op.order_id, p.id, p.product_number, p.type, p.selling_status, p.name, p.price
		FROM order_products op
		JOIN products p ON p.id = op.product_id
		WHERE op.order_id = ANY($1)
		ORDER BY op.id`

	rows, err := r.pool.Query(ctx, batchItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("loading page line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			p       product.Product
			typ     string
			status  string
		)
		err := rows.Scan(&orderID, &p.ID, &p.ProductNumber, &typ, &status, &p.Name, &p.Price)
		if err != nil {
			return nil, fmt.Errorf("scanning page line item: %w", err)
		}
		p.Type = product.Type(typ)
		p.SellingStatus = product.SellingStatus(status)

		pos := index[orderID]
		content[pos].Products = append(content[pos].Products, product.ResponseOf(p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading page line items: %w", err)
	}
	return content, nil
}

func (r *OrderQueryRepository) lineItems(ctx context.Context, orderID int64) ([]order.LineItem, error) {
	rows, err := r.pool.Query(ctx, searchOrderProductsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading line items of order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanLineItem)
}

// buildOrderFilter assembles the WHERE clause for an order search condition.
// Nil filters contribute no predicate; the date filter matches the calendar
// day [date 00:00, date+24h).
func buildOrderFilter(cond order.SearchCond) (where string, args []any) {
	var clauses []string

	if cond.Status != nil {
		args = append(args, string(*cond.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if cond.Date != nil {
		d := *cond.Date
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
		args = append(args, day, day.Add(24*time.Hour))
		clauses = append(clauses, fmt.Sprintf("registered_at >= $%d AND registered_at < $%d",
			len(args)-1, len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// buildOrderBy maps API sort fields to columns through the whitelist.
// An empty sort defaults to ascending ID.
func buildOrderBy(sorts []order.SortSpec) (string, error) {
	if len(sorts) == 0 {
		return " ORDER BY id ASC", nil
	}

	terms := make([]string, len(sorts))
	for i, s := range sorts {
		col, ok := sortColumns[s.Field]
		if !ok {
			return "", errors.Errorf("unsupported sort field %q", s.Field)
		}
		dir := "ASC"
		if s.Direction == order.SortDesc {
			dir = "DESC"
		}
		terms[i] = col + " " + dir
	}
	return " ORDER BY " + strings.Join(terms, ", "), nil
}

func totalPages(total int64, size int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &status, &o.TotalPrice, &o.RegisteredAt)
	o.Status = order.Status(status)
	return o, err
}

func scanLineItem(row pgx.CollectableRow) (order.LineItem, error) {
	var (
		item   order.LineItem
		typ    string
		status string
	)
	err := row.Scan(&item.ID, &item.Product.ID, &item.Product.ProductNumber,
		&typ, &status, &item.Product.Name, &item.Product.Price)
	item.Product.Type = product.Type(typ)
	item.Product.SellingStatus = product.SellingStatus(status)
	return item, err
}

// nullableProduct scans the product side of a LEFT JOIN row where an order
// may have no line items.
type nullableProduct struct {
	ID            *int64
	ProductNumber *string
	Type          *string
	SellingStatus *string
	Name          *string
	Price         *int64
}

func (p nullableProduct) response() (product.Response, bool) {
	if p.ID == nil {
		return product.Response{}, false
	}
	return product.Response{
		ID:            *p.ID,
		ProductNumber: *p.ProductNumber,
		Type:          product.Type(*p.Type),
		SellingStatus: product.SellingStatus(*p.SellingStatus),
		Name:          *p.Name,
		Price:         *p.Price,
	}, true
}
