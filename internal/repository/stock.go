package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/cafe-kiosk/internal/domain/stock"
)

const (
	// FOR UPDATE keeps the rows locked until the surrounding transaction
	// finishes, so concurrent deductions against the same product serialize
	// and at most one of two over-subscribing orders succeeds.
	findStocksByNumbersForUpdateSQL = `SELECT id, product_number, quantity
		FROM stocks WHERE product_number = ANY($1)
		ORDER BY product_number FOR UPDATE`

	findStocksByNumbersSQL = `SELECT id, product_number, quantity
		FROM stocks WHERE product_number = ANY($1) ORDER BY product_number`

	updateStockQuantitySQL = `UPDATE stocks SET quantity = $2, updated_at = now() WHERE id = $1`

	createStockSQL = `INSERT INTO stocks (product_number, quantity)
		VALUES ($1, $2) RETURNING id`
)

var _ stock.Repository = (*StockRepository)(nil)

// StockRepository implements stock.Repository backed by PostgreSQL.
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository returns a StockRepository that uses the given pool.
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

// FindAllByProductNumbers returns stock rows for the given product numbers.
// Inside a transaction the rows are fetched with FOR UPDATE; outside one the
// plain read is used since no deduction can follow.
func (r *StockRepository) FindAllByProductNumbers(ctx context.Context, numbers []string) ([]stock.Stock, error) {
	query := findStocksByNumbersSQL
	if _, inTx := txFrom(ctx); inTx {
		query = findStocksByNumbersForUpdateSQL
	}

	rows, err := db(ctx, r.pool).Query(ctx, query, numbers)
	if err != nil {
		return nil, fmt.Errorf("finding stocks by product numbers: %w", err)
	}
	return pgx.CollectRows(rows, scanStock)
}

// UpdateQuantity writes back a deducted stock quantity.
func (r *StockRepository) UpdateQuantity(ctx context.Context, s stock.Stock) error {
	tag, err := db(ctx, r.pool).Exec(ctx, updateStockQuantitySQL, s.ID, s.Quantity)
	if err != nil {
		return fmt.Errorf("updating stock %d: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating stock %d: %w", s.ID, stock.ErrNotFound)
	}
	return nil
}

// Create persists a stock record and fills in its generated ID.
func (r *StockRepository) Create(ctx context.Context, s *stock.Stock) error {
	err := db(ctx, r.pool).QueryRow(ctx, createStockSQL, s.ProductNumber, s.Quantity).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("creating stock for product %q: %w", s.ProductNumber, err)
	}
	return nil
}

func scanStock(row pgx.CollectableRow) (stock.Stock, error) {
	var s stock.Stock
	err := row.Scan(&s.ID, &s.ProductNumber, &s.Quantity)
	return s, err
}
