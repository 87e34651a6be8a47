package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xenking/cafe-kiosk/internal/domain/product"
)

type productCreateRequest struct {
	Type          product.Type          `json:"type"`
	SellingStatus product.SellingStatus `json:"sellingStatus"`
	Name          string                `json:"name"`
	Price         int64                 `json:"price"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.products.CreateProduct(r.Context(), product.CreateRequest{
		Type:          req.Type,
		SellingStatus: req.SellingStatus,
		Name:          req.Name,
		Price:         req.Price,
	})
	if err != nil {
		// Creation failures are validation errors unless persistence broke.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeOK(w, resp)
}

func (h *Handler) listSellingProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListSellingProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, products)
}
