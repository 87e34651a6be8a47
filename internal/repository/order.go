package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/cafe-kiosk/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (status, total_price, registered_at)
		VALUES ($1, $2, $3) RETURNING id`

	createOrderProductSQL = `INSERT INTO order_products (order_id, product_id)
		VALUES ($1, $2) RETURNING id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and one row per line item. Line items are
// inserted in slice order so their serial IDs preserve the request order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	q := db(ctx, r.pool)

	err := q.QueryRow(ctx, createOrderSQL,
		string(o.Status), o.TotalPrice, o.RegisteredAt,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("creating order: %w", err)
	}

	for i := range o.LineItems {
		item := &o.LineItems[i]
		err := q.QueryRow(ctx, createOrderProductSQL, o.ID, item.Product.ID).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("creating line item %d of order %d: %w", i, o.ID, err)
		}
	}
	return nil
}
