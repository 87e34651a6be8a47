// Package handler exposes the kiosk services over JSON HTTP.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/cafe-kiosk/internal/domain/order"
	"github.com/xenking/cafe-kiosk/internal/domain/product"
)

// OrderCreator places orders. Implemented by order.Service.
type OrderCreator interface {
	CreateOrder(ctx context.Context, productNumbers []string, registeredAt time.Time) (*order.Response, error)
}

// ProductService manages the catalog. Implemented by product.Service.
type ProductService interface {
	CreateProduct(ctx context.Context, req product.CreateRequest) (*product.Response, error)
	ListSellingProducts(ctx context.Context) ([]product.Response, error)
}

// Handler wires HTTP routes to the kiosk services.
type Handler struct {
	orders       OrderCreator
	orderQueries order.QueryRepository
	products     ProductService
}

// New constructs a Handler with the required dependencies.
func New(orders OrderCreator, orderQueries order.QueryRepository, products ProductService) *Handler {
	return &Handler{
		orders:       orders,
		orderQueries: orderQueries,
		products:     products,
	}
}

// Register mounts all API routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/orders/new", h.createOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/paged", h.pagedOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/products/new", h.createProduct)
		r.Get("/products/selling", h.listSellingProducts)
	})
}

// apiResponse is the envelope wrapping every payload.
type apiResponse struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, apiResponse{
		Code:    http.StatusOK,
		Status:  http.StatusText(http.StatusOK),
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, apiResponse{
		Code:    code,
		Status:  http.StatusText(code),
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
