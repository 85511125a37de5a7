package catalogclient

import (
	"context"
	"github.com/shopspring/decimal"
)

const StatusActive = "active"

// ProductSnapshot is the lookup projection served by the catalog.
type ProductSnapshot struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	StockQty int             `json:"stockQty"`
	Status   string          `json:"status"`
}

type Line struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

type Result struct {
	ProductID string `json:"productId"`
	StockQty  int    `json:"stockQty"`
}

// Resolver yields the catalog base URL, e.g. "http://catalog:8082".
type Resolver interface {
	BaseURL(ctx context.Context) (string, error)
}

type StaticURL string

func (u StaticURL) BaseURL(context.Context) (string, error) { return string(u), nil }

// SnapshotCache stores lookup projections between calls.
type SnapshotCache interface {
	GetMany(ctx context.Context, ids []string) (map[string]ProductSnapshot, error)
	SetMany(ctx context.Context, snaps []ProductSnapshot) error
	Evict(ctx context.Context, ids ...string) error
}
