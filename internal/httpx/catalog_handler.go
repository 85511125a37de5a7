package httpx

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/auth"
	"github.com/ariefcatur/go-catalog-orders/internal/inventory"
	"github.com/go-chi/chi/v5"
	"net/http"
	"strings"
)

type ProductService interface {
	Create(ctx context.Context, in inventory.ProductInput) (*inventory.Product, error)
	Get(ctx context.Context, id string) (*inventory.Product, error)
	List(ctx context.Context, q inventory.ListQuery) ([]inventory.Product, int, error)
	Update(ctx context.Context, id string, patch inventory.ProductPatch) (*inventory.Product, error)
	Delete(ctx context.Context, id string) error
	Lookup(ctx context.Context, ids []string) ([]inventory.Snapshot, error)
}

type StockReserver interface {
	Reserve(ctx context.Context, lines []inventory.Line) ([]inventory.Result, error)
}

// CatalogHandler serves product administration under /api/products and the
// S2S endpoints under /api/public.
type CatalogHandler struct {
	Products ProductService
	Reserver StockReserver
	Guard    *Guard
	S2SKey   string
}

type reserveReq struct {
	Lines []inventory.Line `json:"lines"`
}

type reserveResp struct {
	OK      bool               `json:"ok"`
	Results []inventory.Result `json:"results"`
}

type lookupReq struct {
	IDs []string `json:"ids"`
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.With(h.Guard.RequireCapability("products", auth.ActionRead)).Get("/", h.list)
		r.With(h.Guard.RequireCapability("products", auth.ActionRead)).Get("/{id}", h.get)
		r.Group(func(r chi.Router) {
			r.Use(h.Guard.RequireCapability("products", auth.ActionWrite))
			r.Post("/", h.create)
			r.Patch("/{id}", h.update)
			r.Delete("/{id}", h.delete)
		})
	})
	r.Route("/api/public", func(r chi.Router) {
		r.Use(RequireS2S(h.S2SKey))
		r.Post("/inventory/decrement", h.reserve)
		r.Post("/products/lookup", h.lookup)
	})
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	page, size := parsePage(r)
	q := inventory.ListQuery{
		Q:        strings.TrimSpace(r.URL.Query().Get("q")),
		Status:   inventory.Status(r.URL.Query().Get("status")),
		Page:     page,
		PageSize: size,
	}
	items, total, err := h.Products.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(items, page, size, total))
}

func (h *CatalogHandler) create(w http.ResponseWriter, r *http.Request) {
	var in inventory.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Products.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) update(w http.ResponseWriter, r *http.Request) {
	var patch inventory.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Products.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (h *CatalogHandler) reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	results, err := h.Reserver.Reserve(r.Context(), req.Lines)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reserveResp{OK: true, Results: results})
}

func (h *CatalogHandler) lookup(w http.ResponseWriter, r *http.Request) {
	var req lookupReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snaps, err := h.Products.Lookup(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}
