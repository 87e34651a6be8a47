package product

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-faster/errors"
)

const firstProductNumber = "001"

// Transactor runs a function inside a single database transaction. Repository
// calls made with the context passed to fn share that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CreateRequest carries the fields needed to register a new catalog entry.
type CreateRequest struct {
	Type          Type
	SellingStatus SellingStatus
	Name          string
	Price         int64
}

func (r CreateRequest) validate() error {
	if !r.Type.Valid() {
		return errors.Errorf("invalid product type %q", r.Type)
	}
	if !r.SellingStatus.Valid() {
		return errors.Errorf("invalid selling status %q", r.SellingStatus)
	}
	if r.Name == "" {
		return errors.New("product name is required")
	}
	if r.Price < 0 {
		return errors.New("product price must be non-negative")
	}
	return nil
}

// Service implements catalog use cases: registering products with sequentially
// assigned product numbers and listing the sellable catalog.
type Service struct {
	products Repository
	tx       Transactor
}

// NewService creates a catalog Service.
func NewService(products Repository, tx Transactor) *Service {
	return &Service{products: products, tx: tx}
}

// CreateProduct assigns the next product number and persists the product.
// Number assignment and the insert run in one transaction so two concurrent
// creations cannot claim the same number.
func (s *Service) CreateProduct(ctx context.Context, req CreateRequest) (*Response, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var created Product
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		number, err := s.nextProductNumber(ctx)
		if err != nil {
			return err
		}

		created = Product{
			ProductNumber: number,
			Type:          req.Type,
			SellingStatus: req.SellingStatus,
			Name:          req.Name,
			Price:         req.Price,
		}
		if err := s.products.Create(ctx, &created); err != nil {
			return errors.Wrap(err, "create product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := ResponseOf(created)
	return &resp, nil
}

// ListSellingProducts returns all products displayable on the kiosk.
func (s *Service) ListSellingProducts(ctx context.Context) ([]Response, error) {
	products, err := s.products.FindAllBySellingStatuses(ctx, DisplayStatuses())
	if err != nil {
		return nil, errors.Wrap(err, "list selling products")
	}

	responses := make([]Response, len(products))
	for i, p := range products {
		responses[i] = ResponseOf(p)
	}
	return responses, nil
}

func (s *Service) nextProductNumber(ctx context.Context) (string, error) {
	latest, err := s.products.FindLatestProductNumber(ctx)
	if err != nil {
		return "", errors.Wrap(err, "find latest product number")
	}
	if latest == "" {
		return firstProductNumber, nil
	}

	n, err := strconv.Atoi(latest)
	if err != nil {
		return "", errors.Wrapf(err, "parse latest product number %q", latest)
	}
	return fmt.Sprintf("%03d", n+1), nil
}
