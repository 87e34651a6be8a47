package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/cafe-kiosk/internal/domain/product"
	"github.com/xenking/cafe-kiosk/internal/domain/stock"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byNumber map[string]product.Product
	findErr  error
}

func (m *mockProductRepo) FindAllByProductNumbers(_ context.Context, numbers []string) ([]product.Product, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var found []product.Product
	seen := make(map[string]struct{})
	for _, n := range numbers {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		if p, ok := m.byNumber[n]; ok {
			found = append(found, p)
		}
	}
	return found, nil
}

func (m *mockProductRepo) FindAllBySellingStatuses(_ context.Context, _ []product.SellingStatus) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) FindLatestProductNumber(_ context.Context) (string, error) {
	return "", nil
}

func (m *mockProductRepo) Create(_ context.Context, _ *product.Product) error {
	return nil
}

type mockStockRepo struct {
	byNumber map[string]stock.Stock
	updated  map[string]int64
}

func (m *mockStockRepo) FindAllByProductNumbers(_ context.Context, numbers []string) ([]stock.Stock, error) {
	var found []stock.Stock
	for _, n := range numbers {
		if s, ok := m.byNumber[n]; ok {
			found = append(found, s)
		}
	}
	return found, nil
}

func (m *mockStockRepo) UpdateQuantity(_ context.Context, s stock.Stock) error {
	if m.updated == nil {
		m.updated = make(map[string]int64)
	}
	m.updated[s.ProductNumber] = s.Quantity
	return nil
}

func (m *mockStockRepo) Create(_ context.Context, _ *stock.Stock) error {
	return nil
}

type mockOrderRepo struct {
	lastOrder *Order
	err       error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.err != nil {
		return m.err
	}
	o.ID = 1
	m.lastOrder = o
	return nil
}

// passTx runs the function directly without a real transaction.
type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Helpers ---

func testProduct(number string, typ product.Type, price int64) product.Product {
	return product.Product{
		ProductNumber: number,
		Type:          typ,
		SellingStatus: product.StatusSelling,
		Name:          "menu " + number,
		Price:         price,
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byNumber := make(map[string]product.Product, len(products))
	for _, p := range products {
		byNumber[p.ProductNumber] = p
	}
	return &mockProductRepo{byNumber: byNumber}
}

func newStockRepo(stocks ...stock.Stock) *mockStockRepo {
	byNumber := make(map[string]stock.Stock, len(stocks))
	for _, s := range stocks {
		byNumber[s.ProductNumber] = s
	}
	return &mockStockRepo{byNumber: byNumber}
}

// --- Tests ---

func TestCreateOrder(t *testing.T) {
	products := newProductRepo(
		testProduct("001", product.TypeHandmade, 1000),
		testProduct("002", product.TypeHandmade, 3000),
	)
	orders := &mockOrderRepo{}
	svc := NewService(products, newStockRepo(), orders, passTx{})

	registeredAt := time.Date(2023, 3, 5, 12, 0, 0, 0, time.UTC)
	resp, err := svc.CreateOrder(context.Background(), []string{"001", "002"}, registeredAt)
	require.NoError(t, err)

	assert.Equal(t, int64(4000), resp.TotalPrice)
	assert.Equal(t, registeredAt, resp.RegisteredAt)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, "001", resp.Products[0].ProductNumber)
	assert.Equal(t, "002", resp.Products[1].ProductNumber)

	require.NotNil(t, orders.lastOrder)
	assert.Equal(t, StatusInit, orders.lastOrder.Status)
}

func TestCreateOrder_DuplicateProductNumbers(t *testing.T) {
	products := newProductRepo(testProduct("001", product.TypeHandmade, 1000))
	svc := NewService(products, newStockRepo(), &mockOrderRepo{}, passTx{})

	resp, err := svc.CreateOrder(context.Background(), []string{"001", "001"}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(2000), resp.TotalPrice)
	assert.Len(t, resp.Products, 2)
}

func TestCreateOrder_DeductsStockByAggregatedCount(t *testing.T) {
	products := newProductRepo(
		testProduct("001", product.TypeBottle, 1000),
		testProduct("002", product.TypeBakery, 3000),
	)
	stocks := newStockRepo(
		stock.New("001", 2),
		stock.New("002", 2),
	)
	svc := NewService(products, stocks, &mockOrderRepo{}, passTx{})

	resp, err := svc.CreateOrder(context.Background(), []string{"001", "001", "002"}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(5000), resp.TotalPrice)
	assert.Equal(t, int64(0), stocks.updated["001"])
	assert.Equal(t, int64(1), stocks.updated["002"])
}

func TestCreateOrder_HandmadeSkipsStock(t *testing.T) {
	products := newProductRepo(testProduct("001", product.TypeHandmade, 1000))
	stocks := newStockRepo()
	svc := NewService(products, stocks, &mockOrderRepo{}, passTx{})

	_, err := svc.CreateOrder(context.Background(), []string{"001"}, time.Now())
	require.NoError(t, err)

	assert.Empty(t, stocks.updated)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	products := newProductRepo(testProduct("001", product.TypeBottle, 1000))
	stocks := newStockRepo(stock.New("001", 1))
	svc := NewService(products, stocks, &mockOrderRepo{}, passTx{})

	_, err := svc.CreateOrder(context.Background(), []string{"001", "001"}, time.Now())

	var insErr *stock.InsufficientError
	require.ErrorAs(t, err, &insErr)
	assert.Equal(t, "001", insErr.ProductNumber)
	assert.Equal(t, int64(2), insErr.Requested)
	assert.Equal(t, int64(1), insErr.Available)
}

func TestCreateOrder_MissingStockRecord(t *testing.T) {
	products := newProductRepo(testProduct("001", product.TypeBottle, 1000))
	svc := NewService(products, newStockRepo(), &mockOrderRepo{}, passTx{})

	_, err := svc.CreateOrder(context.Background(), []string{"001"}, time.Now())
	require.ErrorIs(t, err, stock.ErrNotFound)
}

func TestCreateOrder_UnknownProductNumber(t *testing.T) {
	svc := NewService(newProductRepo(), newStockRepo(), &mockOrderRepo{}, passTx{})

	_, err := svc.CreateOrder(context.Background(), []string{"999"}, time.Now())

	var nfErr *product.NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "999", nfErr.ProductNumber)
}

func TestCreateOrder_EmptyProductNumbers(t *testing.T) {
	svc := NewService(newProductRepo(), newStockRepo(), &mockOrderRepo{}, passTx{})

	_, err := svc.CreateOrder(context.Background(), nil, time.Now())
	require.ErrorIs(t, err, ErrEmptyProductNumbers)
}

func TestExtractStockProductNumbersKeepsMultiplicity(t *testing.T) {
	products := []product.Product{
		testProduct("001", product.TypeBottle, 1000),
		testProduct("002", product.TypeHandmade, 2000),
		testProduct("001", product.TypeBottle, 1000),
	}

	numbers := extractStockProductNumbers(products)

	assert.Equal(t, []string{"001", "001"}, numbers)
}

func TestCountByNumber(t *testing.T) {
	counts := countByNumber([]string{"001", "002", "001"})

	assert.Equal(t, map[string]int64{"001": 2, "002": 1}, counts)
}

func TestDistinctPreservesFirstSeenOrder(t *testing.T) {
	assert.Equal(t, []string{"002", "001"}, distinct([]string{"002", "001", "002"}))
}
