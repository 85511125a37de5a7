package httpx

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/auth"
	"github.com/ariefcatur/go-catalog-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"net/http"
)

type CustomerService interface {
	CreateCustomer(ctx context.Context, in orders.CustomerInput) (*orders.Customer, error)
	GetCustomer(ctx context.Context, id string) (*orders.Customer, error)
	ListCustomers(ctx context.Context, q orders.CustomerQuery) ([]orders.Customer, int, error)
	UpdateCustomer(ctx context.Context, id string, p orders.CustomerPatch) (*orders.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
}

type CustomersHandler struct {
	Customers CustomerService
	Guard     *Guard
}

func (h *CustomersHandler) Register(r chi.Router) {
	r.Route("/api/customers", func(r chi.Router) {
		r.With(h.Guard.RequireCapability("customers", auth.ActionRead)).Get("/", h.list)
		r.With(h.Guard.RequireCapability("customers", auth.ActionRead)).Get("/{id}", h.get)
		r.Group(func(r chi.Router) {
			r.Use(h.Guard.RequireCapability("customers", auth.ActionWrite))
			r.Post("/", h.create)
			r.Patch("/{id}", h.update)
			r.Delete("/{id}", h.delete)
		})
	})
}

func (h *CustomersHandler) list(w http.ResponseWriter, r *http.Request) {
	page, size := parsePage(r)
	items, total, err := h.Customers.ListCustomers(r.Context(), orders.CustomerQuery{Q: r.URL.Query().Get("q"), Page: page, PageSize: size})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(items, page, size, total))
}

func (h *CustomersHandler) create(w http.ResponseWriter, r *http.Request) {
	var in orders.CustomerInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Customers.CreateCustomer(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CustomersHandler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Customers.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CustomersHandler) update(w http.ResponseWriter, r *http.Request) {
	var p orders.CustomerPatch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Customers.UpdateCustomer(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CustomersHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Customers.DeleteCustomer(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}
