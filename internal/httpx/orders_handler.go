package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/auth"
	"github.com/ariefcatur/go-catalog-orders/internal/orders"
	"github.com/ariefcatur/go-catalog-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/hlog"
	"net/http"
	"strings"
)

type OrderService interface {
	Create(ctx context.Context, in orders.CreateInput) (*orders.Order, error)
	Get(ctx context.Context, id string) (*orders.Order, error)
	List(ctx context.Context, q orders.ListQuery) ([]orders.Order, int, error)
	UpdateStatus(ctx context.Context, id, status string) (*orders.Order, error)
	Delete(ctx context.Context, id string) error
}

// OrdersHandler serves /api/orders. Redis is optional: with it, POST honours
// an Idempotency-Key header and GET by id is served from a short lived cache.
type OrdersHandler struct {
	Orders OrderService
	Redis  *redis.Client
	Guard  *Guard
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.With(h.Guard.RequireCapability("orders", auth.ActionRead)).Get("/", h.list)
		r.With(h.Guard.RequireCapability("orders", auth.ActionRead)).Get("/{id}", h.get)
		r.Group(func(r chi.Router) {
			r.Use(h.Guard.RequireCapability("orders", auth.ActionWrite))
			r.Post("/", h.create)
			r.Patch("/{id}", h.updateStatus)
			r.Delete("/{id}", h.delete)
		})
	})
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var in orders.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if h.Redis == nil || idemKey == "" {
		o, err := h.Orders.Create(ctx, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, o)
		return
	}
	h.createOnce(w, r, in, fmt.Sprintf(redisx.KeyIdemOrderCreate, idemKey))
}

const idemPending = "pending"

// createOnce claims key before creating, so of two requests racing with the
// same key only one reaches Create. The loser replays the winner's order, or
// gets IdempotencyInProgress while the winner is still running.
func (h *OrdersHandler) createOnce(w http.ResponseWriter, r *http.Request, in orders.CreateInput, key string) {
	ctx := r.Context()
	log := hlog.FromRequest(r)

	claimed, err := h.Redis.SetNX(ctx, key, idemPending, redisx.TTLIdempotencyClaim).Result()
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindUpstreamUnavailable, err, "claim idempotency key"))
		return
	}
	if !claimed {
		h.replay(w, r, key)
		return
	}

	// the claim must be settled even if the caller goes away
	settle := context.WithoutCancel(ctx)
	o, err := h.Orders.Create(ctx, in)
	if err != nil {
		if err := h.Redis.Del(settle, key).Err(); err != nil {
			log.Warn().Err(err).Msg("release idempotency key")
		}
		writeError(w, r, err)
		return
	}
	if err := h.Redis.Set(settle, key, o.ID, redisx.TTLIdempotency).Err(); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID).Msg("store idempotency key")
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) replay(w http.ResponseWriter, r *http.Request, key string) {
	id, err := h.Redis.Get(r.Context(), key).Result()
	if errors.Is(err, redis.Nil) || id == idemPending {
		writeError(w, r, apperr.New(apperr.KindIdempotencyInProgress, nil))
		return
	}
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindUpstreamUnavailable, err, "read idempotency key"))
		return
	}
	o, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Idempotent-Replayed", "true")
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	page, size := parsePage(r)
	q := orders.ListQuery{
		Status:     orders.Status(r.URL.Query().Get("status")),
		CustomerID: r.URL.Query().Get("customerId"),
		Page:       page,
		PageSize:   size,
	}
	items, total, err := h.Orders.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(items, page, size, total))
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id := strings.ToLower(chi.URLParam(r, "id"))
	ctx := r.Context()

	// 1) cache
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, fmt.Sprintf(redisx.KeyOrder, id)).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	// 2) store
	o, err := h.Orders.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Redis != nil {
		if b, err := json.Marshal(o); err == nil {
			_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrder, o.ID), b, redisx.TTLOrderCache).Err()
		}
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	o, err := h.Orders.UpdateStatus(r.Context(), id, req.Status)
	h.forget(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	actorLog(r).Info().Str("order_id", o.ID).Str("status", string(o.Status)).Msg("order status set")
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Orders.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.forget(r, id)
	actorLog(r).Info().Str("order_id", id).Msg("order deleted")
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (h *OrdersHandler) forget(r *http.Request, id string) {
	if h.Redis == nil {
		return
	}
	if err := h.Redis.Del(r.Context(), fmt.Sprintf(redisx.KeyOrder, strings.ToLower(id))).Err(); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("evict cached order")
	}
}
