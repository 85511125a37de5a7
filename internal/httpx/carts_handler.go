package httpx

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/auth"
	"github.com/ariefcatur/go-catalog-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"net/http"
)

type CartService interface {
	CreateCart(ctx context.Context, in orders.CartInput) (*orders.Cart, bool, error)
	GetCart(ctx context.Context, id string) (*orders.Cart, error)
	ListCarts(ctx context.Context, q orders.CartQuery) ([]orders.Cart, int, error)
	SetCartLine(ctx context.Context, id string, in orders.CartLineInput) (*orders.Cart, error)
	DeleteCart(ctx context.Context, id string) error
}

// CartsHandler serves /api/carts. PUT sets a single line: {productId, qty}.
type CartsHandler struct {
	Carts CartService
	Guard *Guard
}

func (h *CartsHandler) Register(r chi.Router) {
	r.Route("/api/carts", func(r chi.Router) {
		r.With(h.Guard.RequireCapability("carts", auth.ActionRead)).Get("/", h.list)
		r.With(h.Guard.RequireCapability("carts", auth.ActionRead)).Get("/{id}", h.get)
		r.Group(func(r chi.Router) {
			r.Use(h.Guard.RequireCapability("carts", auth.ActionWrite))
			r.Post("/", h.create)
			r.Put("/{id}", h.setLine)
			r.Delete("/{id}", h.delete)
		})
	})
}

func (h *CartsHandler) list(w http.ResponseWriter, r *http.Request) {
	page, size := parsePage(r)
	items, total, err := h.Carts.ListCarts(r.Context(), orders.CartQuery{CustomerID: r.URL.Query().Get("customerId"), Page: page, PageSize: size})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(items, page, size, total))
}

// create answers 200 with the existing cart when the customer has one.
func (h *CartsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in orders.CartInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, existed, err := h.Carts.CreateCart(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if existed {
		writeJSON(w, http.StatusOK, c)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CartsHandler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.GetCart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartsHandler) setLine(w http.ResponseWriter, r *http.Request) {
	var in orders.CartLineInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Carts.SetCartLine(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Carts.DeleteCart(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	actorLog(r).Info().Str("cart_id", id).Msg("cart deleted")
	writeJSON(w, http.StatusOK, okBody{OK: true})
}
