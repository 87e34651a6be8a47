package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/cafe-kiosk/internal/domain/product"
)

const (
	findProductsByNumbersSQL = `SELECT id, product_number, type, selling_status, name, price
		FROM products WHERE product_number = ANY($1)`

	findProductsBySellingStatusesSQL = `SELECT id, product_number, type, selling_status, name, price
		FROM products WHERE selling_status = ANY($1) ORDER BY product_number`

	findLatestProductNumberSQL = `SELECT product_number FROM products
		ORDER BY id DESC LIMIT 1`

	createProductSQL = `INSERT INTO products (product_number, type, selling_status, name, price)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// FindAllByProductNumbers returns products matching any of the given numbers.
func (r *ProductRepository) FindAllByProductNumbers(ctx context.Context, numbers []string) ([]product.Product, error) {
	rows, err := db(ctx, r.pool).Query(ctx, findProductsByNumbersSQL, numbers)
	if err != nil {
		return nil, fmt.Errorf("finding products by numbers: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// FindAllBySellingStatuses returns products whose selling status is in the set.
func (r *ProductRepository) FindAllBySellingStatuses(ctx context.Context, statuses []product.SellingStatus) ([]product.Product, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	rows, err := db(ctx, r.pool).Query(ctx, findProductsBySellingStatusesSQL, values)
	if err != nil {
		return nil, fmt.Errorf("finding products by selling statuses: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// FindLatestProductNumber returns the most recently assigned product number,
// or "" for an empty catalog. The latest number is the one of the newest row,
// not the lexicographic maximum, so numbers keep growing past "999".
func (r *ProductRepository) FindLatestProductNumber(ctx context.Context) (string, error) {
	var number string
	err := db(ctx, r.pool).QueryRow(ctx, findLatestProductNumberSQL).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("finding latest product number: %w", err)
	}
	return number, nil
}

// Create persists a product and fills in its generated ID.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := db(ctx, r.pool).QueryRow(ctx, createProductSQL,
		p.ProductNumber, string(p.Type), string(p.SellingStatus), p.Name, p.Price,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ProductNumber, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p             product.Product
		typ           string
		sellingStatus string
	)
	err := row.Scan(&p.ID, &p.ProductNumber, &typ, &sellingStatus, &p.Name, &p.Price)
	p.Type = product.Type(typ)
	p.SellingStatus = product.SellingStatus(sellingStatus)
	return p, err
}
