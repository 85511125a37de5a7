package inventory

import "context"

// Ledger is the stock store. The catalog service is its only writer.
type Ledger interface {
	// Snapshots returns the projection of the ids that exist; missing ids are absent.
	Snapshots(ctx context.Context, ids []string) (map[string]Snapshot, error)
	// WithinTx runs fn in one storage transaction, committing only when fn
	// returns nil. Failing to open or commit yields TransactionUnavailable.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

type LedgerTx interface {
	// DecrementIfAvailable subtracts qty and bumps version only while
	// stock_qty >= qty. It returns nil, nil when the condition fails.
	DecrementIfAvailable(ctx context.Context, id string, qty int) (*Product, error)
}

// ProductStore is the admin CRUD side of the ledger.
type ProductStore interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, q ListQuery) ([]Product, int, error)
	Update(ctx context.Context, id string, patch ProductPatch) (*Product, error)
	Delete(ctx context.Context, id string) error
}
