package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/cafe-kiosk/internal/domain/order"
	"github.com/xenking/cafe-kiosk/internal/domain/product"
	"github.com/xenking/cafe-kiosk/internal/domain/stock"
)

const dateLayout = "2006-01-02"

type orderCreateRequest struct {
	ProductNumbers []string   `json:"productNumbers"`
	RegisteredAt   *time.Time `json:"registeredDateTime"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.ProductNumbers) == 0 {
		writeError(w, http.StatusBadRequest, "productNumbers must not be empty")
		return
	}

	registeredAt := time.Now()
	if req.RegisteredAt != nil {
		registeredAt = *req.RegisteredAt
	}

	resp, err := h.orders.CreateOrder(r.Context(), req.ProductNumbers, registeredAt)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeOK(w, resp)
}

// writeOrderError maps domain failures to client errors; anything else is an
// infrastructure failure and stays a 500.
func writeOrderError(w http.ResponseWriter, err error) {
	var insufficientErr *stock.InsufficientError
	var notFoundErr *product.NotFoundError
	switch {
	case errors.Is(err, order.ErrEmptyProductNumbers),
		errors.As(err, &insufficientErr),
		errors.As(err, &notFoundErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orderQueries.SearchByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, order.ResponseOf(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	cond, err := parseSearchCond(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := h.orderQueries.SearchByStatusAndDate(r.Context(), cond)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, orders)
}

func (h *Handler) pagedOrders(w http.ResponseWriter, r *http.Request) {
	cond, err := parseSearchCond(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := parsePageRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orderQueries.PagedSearch(r.Context(), cond, page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeOK(w, result)
}

func parseSearchCond(r *http.Request) (order.SearchCond, error) {
	var cond order.SearchCond

	if s := r.URL.Query().Get("status"); s != "" {
		status := order.Status(s)
		if !status.Valid() {
			return cond, errors.Errorf("invalid order status %q", s)
		}
		cond.Status = &status
	}
	if d := r.URL.Query().Get("date"); d != "" {
		date, err := time.Parse(dateLayout, d)
		if err != nil {
			return cond, errors.Errorf("invalid date %q, expected YYYY-MM-DD", d)
		}
		cond.Date = &date
	}
	return cond, nil
}

// parsePageRequest reads page, size, and sort parameters. Sort terms use the
// "field,dir" form, e.g. sort=id,desc; repeated sort parameters compose.
func parsePageRequest(r *http.Request) (order.PageRequest, error) {
	page := order.PageRequest{Page: 0, Size: 20}
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, errors.Errorf("invalid page %q", v)
		}
		page.Page = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return page, errors.Errorf("invalid size %q", v)
		}
		page.Size = n
	}
	for _, v := range q["sort"] {
		field, dir, _ := strings.Cut(v, ",")
		spec := order.SortSpec{Field: field, Direction: order.SortAsc}
		if strings.EqualFold(dir, "desc") {
			spec.Direction = order.SortDesc
		}
		if !spec.Valid() {
			return page, errors.Errorf("unsupported sort field %q", field)
		}
		page.Sort = append(page.Sort, spec)
	}
	return page, nil
}
