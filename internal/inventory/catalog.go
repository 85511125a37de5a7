package inventory

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/events"
	"github.com/ariefcatur/go-catalog-orders/internal/ids"
	"github.com/rs/zerolog"
	"time"
)

// Catalog serves product administration and the S2S lookup.
type Catalog struct {
	Store  ProductStore
	Ledger Ledger
	Events *events.Emitter
	Log    zerolog.Logger
	Now    func() time.Time
}

func (c *Catalog) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func (c *Catalog) Create(ctx context.Context, in ProductInput) (*Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	now := c.now()
	p := &Product{
		ID:        ids.New(),
		Name:      in.Name,
		Price:     *in.Price,
		Currency:  in.Currency,
		StockQty:  *in.StockQty,
		Status:    in.Status,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Store.Create(ctx, p); err != nil {
		return nil, err
	}
	c.changed(ctx, p.ID, "created", p.Version)
	return p, nil
}

func (c *Catalog) Get(ctx context.Context, rawID string) (*Product, error) {
	id, ok := ids.Parse(rawID)
	if !ok {
		return nil, invalidID()
	}
	return c.Store.Get(ctx, id)
}

func (c *Catalog) List(ctx context.Context, q ListQuery) ([]Product, int, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, 0, apperr.Validation(apperr.Issue{Path: "status", Message: "must be active or inactive"})
	}
	return c.Store.List(ctx, q)
}

// Update applies a partial patch and bumps the version. A patch carrying a
// version is rejected with VersionConflict unless it matches the stored one.
func (c *Catalog) Update(ctx context.Context, rawID string, patch ProductPatch) (*Product, error) {
	id, ok := ids.Parse(rawID)
	if !ok {
		return nil, invalidID()
	}
	if err := patch.normalize(); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, apperr.New(apperr.KindEmptyUpdate, nil)
	}
	p, err := c.Store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	c.changed(ctx, p.ID, "updated", p.Version)
	return p, nil
}

func (c *Catalog) Delete(ctx context.Context, rawID string) error {
	id, ok := ids.Parse(rawID)
	if !ok {
		return invalidID()
	}
	if err := c.Store.Delete(ctx, id); err != nil {
		return err
	}
	c.changed(ctx, id, "deleted", 0)
	return nil
}

// Lookup returns the snapshots of the ids that exist, in no particular order.
func (c *Catalog) Lookup(ctx context.Context, in []string) ([]Snapshot, error) {
	want, err := ValidateIDs(in)
	if err != nil {
		return nil, err
	}
	found, err := c.Ledger.Snapshots(ctx, want)
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(found))
	for _, id := range want {
		if s, ok := found[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Catalog) changed(ctx context.Context, id, change string, version int) {
	c.Events.Emit(ctx, events.TopicProductChanged, events.TypeProductChanged, id,
		events.ProductChangedPayload{ProductID: id, Change: change, Version: version})
}

func invalidID() error {
	return apperr.Validation(apperr.Issue{Path: "id", Message: "invalid id"})
}
