package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/cafe-kiosk/internal/domain/product"
	"github.com/xenking/cafe-kiosk/internal/domain/stock"
)

// ErrEmptyProductNumbers is returned when an order request carries no items.
var ErrEmptyProductNumbers = errors.New("product numbers required")

// Transactor runs a function inside a single database transaction. Repository
// calls made with the context passed to fn share that transaction; any error
// rolls back everything, including already-applied stock deductions.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the order aggregation engine. It turns a raw list of requested
// product numbers into a priced, persisted order, deducting stock for tracked
// product types along the way.
type Service struct {
	products product.Repository
	stocks   stock.Repository
	orders   Repository
	tx       Transactor
}

// NewService creates an order Service with the required dependencies.
func NewService(
	products product.Repository,
	stocks stock.Repository,
	orders Repository,
	tx Transactor,
) *Service {
	return &Service{
		products: products,
		stocks:   stocks,
		orders:   orders,
		tx:       tx,
	}
}

// CreateOrder places an order for the given product numbers. Product
// resolution, stock deduction and order persistence run in one transaction:
// either the order and all deductions commit, or nothing does.
//
// Duplicate product numbers are legal and yield one line item per occurrence;
// their stock is deducted by the aggregated count in a single call.
func (s *Service) CreateOrder(ctx context.Context, productNumbers []string, registeredAt time.Time) (*Response, error) {
	if len(productNumbers) == 0 {
		return nil, ErrEmptyProductNumbers
	}

	var resp Response
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		products, err := s.resolveProducts(ctx, productNumbers)
		if err != nil {
			return err
		}

		if err := s.deductStocks(ctx, products); err != nil {
			return err
		}

		o := New(products, registeredAt)
		if err := s.orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}

		resp = ResponseOf(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// resolveProducts fetches all requested products in one batch and re-projects
// them into request order. A number with no matching product fails the order
// immediately instead of surfacing later as a broken line item.
func (s *Service) resolveProducts(ctx context.Context, productNumbers []string) ([]product.Product, error) {
	fetched, err := s.products.FindAllByProductNumbers(ctx, productNumbers)
	if err != nil {
		return nil, errors.Wrap(err, "find products")
	}

	byNumber := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byNumber[p.ProductNumber] = p
	}

	products := make([]product.Product, len(productNumbers))
	for i, number := range productNumbers {
		p, ok := byNumber[number]
		if !ok {
			return nil, &product.NotFoundError{ProductNumber: number}
		}
		products[i] = p
	}
	return products, nil
}

// deductStocks aggregates requested counts per stock-tracked product number
// and deducts each distinct number once. Deduction failures propagate and
// abort the enclosing transaction.
func (s *Service) deductStocks(ctx context.Context, products []product.Product) error {
	stockNumbers := extractStockProductNumbers(products)
	if len(stockNumbers) == 0 {
		return nil
	}

	stockMap, err := s.stockMapFor(ctx, stockNumbers)
	if err != nil {
		return err
	}
	counts := countByNumber(stockNumbers)

	for _, number := range distinct(stockNumbers) {
		st, ok := stockMap[number]
		if !ok {
			return errors.Wrapf(stock.ErrNotFound, "product %s", number)
		}

		if err := st.Deduct(counts[number]); err != nil {
			return err
		}
		if err := s.stocks.UpdateQuantity(ctx, st); err != nil {
			return errors.Wrapf(err, "update stock for product %s", number)
		}
	}
	return nil
}

// extractStockProductNumbers keeps the numbers of stock-tracked products,
// preserving multiplicity so duplicates count toward the deduction.
func extractStockProductNumbers(products []product.Product) []string {
	var numbers []string
	for _, p := range products {
		if p.Type.StockTracked() {
			numbers = append(numbers, p.ProductNumber)
		}
	}
	return numbers
}

func (s *Service) stockMapFor(ctx context.Context, numbers []string) (map[string]stock.Stock, error) {
	stocks, err := s.stocks.FindAllByProductNumbers(ctx, distinct(numbers))
	if err != nil {
		return nil, errors.Wrap(err, "find stocks")
	}

	stockMap := make(map[string]stock.Stock, len(stocks))
	for _, st := range stocks {
		stockMap[st.ProductNumber] = st
	}
	return stockMap, nil
}

func countByNumber(numbers []string) map[string]int64 {
	counts := make(map[string]int64, len(numbers))
	for _, n := range numbers {
		counts[n]++
	}
	return counts
}

// distinct returns the unique values of numbers in first-seen order.
func distinct(numbers []string) []string {
	seen := make(map[string]struct{}, len(numbers))
	uniq := make([]string, 0, len(numbers))
	for _, n := range numbers {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		uniq = append(uniq, n)
	}
	return uniq
}
