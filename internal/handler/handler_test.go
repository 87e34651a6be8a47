package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/cafe-kiosk/internal/domain/order"
	"github.com/xenking/cafe-kiosk/internal/domain/product"
	"github.com/xenking/cafe-kiosk/internal/domain/stock"
)

// --- Stubs ---

type stubOrderCreator struct {
	resp         *order.Response
	err          error
	gotNumbers   []string
	registeredAt time.Time
}

func (s *stubOrderCreator) CreateOrder(_ context.Context, productNumbers []string, registeredAt time.Time) (*order.Response, error) {
	s.gotNumbers = productNumbers
	s.registeredAt = registeredAt
	return s.resp, s.err
}

type stubProductService struct {
	created *product.Response
	listed  []product.Response
	err     error
	gotReq  product.CreateRequest
}

func (s *stubProductService) CreateProduct(_ context.Context, req product.CreateRequest) (*product.Response, error) {
	s.gotReq = req
	return s.created, s.err
}

func (s *stubProductService) ListSellingProducts(_ context.Context) ([]product.Response, error) {
	return s.listed, s.err
}

type stubOrderQueries struct {
	order    *order.Order
	orders   []order.Order
	page     *order.Page
	err      error
	gotCond  order.SearchCond
	gotPage  order.PageRequest
	gotID    int64
	pagedErr error
}

func (s *stubOrderQueries) SearchByID(_ context.Context, id int64) (*order.Order, error) {
	s.gotID = id
	return s.order, s.err
}

func (s *stubOrderQueries) SearchProductsByOrderID(_ context.Context, _ int64) ([]product.Product, error) {
	return nil, nil
}

func (s *stubOrderQueries) SearchByStatusAndDate(_ context.Context, cond order.SearchCond) ([]order.Order, error) {
	s.gotCond = cond
	return s.orders, s.err
}

func (s *stubOrderQueries) ListSummaries(_ context.Context) ([]order.Response, error) {
	return nil, nil
}

func (s *stubOrderQueries) FindHighestTotalPriceOrder(_ context.Context) (*order.Order, error) {
	return s.order, s.err
}

func (s *stubOrderQueries) SumTotalPriceByStatus(_ context.Context, _ order.Status) (int64, error) {
	return 0, nil
}

func (s *stubOrderQueries) BulkUpdateStatusInRange(_ context.Context, _ order.Status, _, _ time.Time) (int64, error) {
	return 0, nil
}

func (s *stubOrderQueries) PagedSearch(_ context.Context, cond order.SearchCond, page order.PageRequest) (*order.Page, error) {
	s.gotCond = cond
	s.gotPage = page
	return s.page, s.pagedErr
}

// --- Helpers ---

func newRouter(orders *stubOrderCreator, queries *stubOrderQueries, products *stubProductService) chi.Router {
	r := chi.NewRouter()
	New(orders, queries, products).Register(r)
	return r
}

func do(t *testing.T, router chi.Router, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

// --- Tests ---

func TestCreateOrder(t *testing.T) {
	orders := &stubOrderCreator{resp: &order.Response{ID: 1, TotalPrice: 8500}}
	router := newRouter(orders, &stubOrderQueries{}, &stubProductService{})

	w := do(t, router, http.MethodPost, "/api/v1/orders/new",
		`{"productNumbers":["001","002"],"registeredDateTime":"2023-03-05T12:00:00Z"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "OK", resp.Status)

	assert.Equal(t, []string{"001", "002"}, orders.gotNumbers)
	assert.Equal(t, time.Date(2023, 3, 5, 12, 0, 0, 0, time.UTC), orders.registeredAt)
}

func TestCreateOrder_DefaultsRegisteredTime(t *testing.T) {
	orders := &stubOrderCreator{resp: &order.Response{ID: 1}}
	router := newRouter(orders, &stubOrderQueries{}, &stubProductService{})

	before := time.Now()
	w := do(t, router, http.MethodPost, "/api/v1/orders/new", `{"productNumbers":["001"]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, orders.registeredAt.Before(before))
}

func TestCreateOrder_EmptyProductNumbers(t *testing.T) {
	router := newRouter(&stubOrderCreator{}, &stubOrderQueries{}, &stubProductService{})

	w := do(t, router, http.MethodPost, "/api/v1/orders/new", `{"productNumbers":[]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "productNumbers must not be empty", decodeEnvelope(t, w).Message)
}

func TestCreateOrder_InvalidBody(t *testing.T) {
	router := newRouter(&stubOrderCreator{}, &stubOrderQueries{}, &stubProductService{})

	w := do(t, router, http.MethodPost, "/api/v1/orders/new", `{not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrder_DomainErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "insufficient stock",
			err:      &stock.InsufficientError{ProductNumber: "001", Requested: 2, Available: 1},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown product",
			err:      &product.NotFoundError{ProductNumber: "999"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "infrastructure failure",
			err:      errors.New("connection reset"),
			wantCode: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&stubOrderCreator{err: tt.err}, &stubOrderQueries{}, &stubProductService{})

			w := do(t, router, http.MethodPost, "/api/v1/orders/new", `{"productNumbers":["001"]}`)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestGetOrder(t *testing.T) {
	queries := &stubOrderQueries{order: &order.Order{ID: 7, Status: order.StatusInit, TotalPrice: 4000}}
	router := newRouter(&stubOrderCreator{}, queries, &stubProductService{})

	w := do(t, router, http.MethodGet, "/api/v1/orders/7", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), queries.gotID)
}

func TestGetOrder_NotFound(t *testing.T) {
	queries := &stubOrderQueries{err: order.ErrNotFound}
	router := newRouter(&stubOrderCreator{}, queries, &stubProductService{})

	w := do(t, router, http.MethodGet, "/api/v1/orders/99", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrder_InvalidID(t *testing.T) {
	router := newRouter(&stubOrderCreator{}, &stubOrderQueries{}, &stubProductService{})

	w := do(t, router, http.MethodGet, "/api/v1/orders/abc", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOrders_Filters(t *testing.T) {
	queries := &stubOrderQueries{}
	router := newRouter(&stubOrderCreator{}, queries, &stubProductService{})

	w := do(t, router, http.MethodGet, "/api/v1/orders?status=PAYMENT_COMPLETED&date=2023-03-05", "")

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, queries.gotCond.Status)
	assert.Equal(t, order.StatusPaymentCompleted, *queries.gotCond.Status)
	require.NotNil(t, queries.gotCond.Date)
	assert.Equal(t, time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC), *queries.gotCond.Date)
}

func TestListOrders_InvalidStatus(t *testing.T) {
	router := newRouter(&stubOrderCreator{}, &stubOrderQueries{}, &stubProductService{})

	w := do(t, router, http.MethodGet, "/api/v1/orders?status=SHIPPED", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOrders_InvalidDate(t *testing.T) {
	router := newRouter(&stubOrderCreator{}, &stubOrderQueries{}, &stubProductService{})

	w := do(t, router, http.MethodGet, "/api/v1/orders?date=05-03-2023", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPagedOrders(t *testing.T) {
	queries := &stubOrderQueries{page: &order.Page{Page: 1, Size: 5}}
	router := newRouter(&stubOrderCreator{}, queries, &stubProductService{})

	w := do(t, router, http.MethodGet,
		"/api/v1/orders/paged?page=1&size=5&sort=totalPrice,desc&sort=id", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, queries.gotPage.Page)
	assert.Equal(t, 5, queries.gotPage.Size)
	require.Len(t, queries.gotPage.Sort, 2)
	assert.Equal(t, order.SortSpec{Field: "totalPrice", Direction: order.SortDesc}, queries.gotPage.Sort[0])
	assert.Equal(t, order.SortSpec{Field: "id", Direction: order.SortAsc}, queries.gotPage.Sort[1])
}

func TestPagedOrders_Defaults(t *testing.T) {
	queries := &stubOrderQueries{page: &order.Page{}}
	router := newRouter(&stubOrderCreator{}, queries, &stubProductService{})

	w := do(t, router, http.MethodGet, "/api/v1/orders/paged", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, queries.gotPage.Page)
	assert.Equal(t, 20, queries.gotPage.Size)
	assert.Empty(t, queries.gotPage.Sort)
}

func TestPagedOrders_InvalidPaging(t *testing.T) {
	router := newRouter(&stubOrderCreator{}, &stubOrderQueries{}, &stubProductService{})

	w := do(t, router, http.MethodGet, "/api/v1/orders/paged?page=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/orders/paged?size=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPagedOrders_UnsupportedSortField(t *testing.T) {
	queries := &stubOrderQueries{page: &order.Page{}}
	router := newRouter(&stubOrderCreator{}, queries, &stubProductService{})

	w := do(t, router, http.MethodGet, "/api/v1/orders/paged?sort=price,desc", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, queries.gotPage.Sort)
}

func TestCreateProduct(t *testing.T) {
	products := &stubProductService{created: &product.Response{ProductNumber: "001", Name: "Americano"}}
	router := newRouter(&stubOrderCreator{}, &stubOrderQueries{}, products)

	w := do(t, router, http.MethodPost, "/api/v1/products/new",
		`{"type":"HANDMADE","sellingStatus":"SELLING","name":"Americano","price":4000}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, product.TypeHandmade, products.gotReq.Type)
	assert.Equal(t, int64(4000), products.gotReq.Price)
}

func TestCreateProduct_ValidationError(t *testing.T) {
	products := &stubProductService{err: errors.New("invalid product type")}
	router := newRouter(&stubOrderCreator{}, &stubOrderQueries{}, products)

	w := do(t, router, http.MethodPost, "/api/v1/products/new",
		`{"type":"FROZEN","sellingStatus":"SELLING","name":"x","price":1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSellingProducts(t *testing.T) {
	products := &stubProductService{listed: []product.Response{
		{ProductNumber: "001", Name: "Americano", Price: 4000},
	}}
	router := newRouter(&stubOrderCreator{}, &stubOrderQueries{}, products)

	w := do(t, router, http.MethodGet, "/api/v1/products/selling", "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	require.NotNil(t, resp.Data)
}
