package inventory

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"strings"
)

// Store is the Postgres-backed Ledger and ProductStore.
type Store struct{ DB *pgxpool.Pool }

const productColumns = `id, name, price, currency, stock_qty, status, version, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var status string
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Currency, &p.StockQty, &status, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = Status(status)
	return &p, nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return apperr.Wrap(apperr.KindTransactionUnavailable, err, "begin reservation tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(pgLedgerTx{tx: tx}); err != nil {
		return txError(err, "reservation tx")
	}
	if err := tx.Commit(ctx); err != nil {
		if postgres.IsTxConflict(err) {
			return txError(err, "commit reservation tx")
		}
		return apperr.Wrap(apperr.KindTransactionUnavailable, err, "commit reservation tx")
	}
	return nil
}

// txError gives deadlocks and serialization failures their own retryable
// kind; everything else passes through.
func txError(err error, msg string) error {
	if _, ok := apperr.As(err); !ok && postgres.IsTxConflict(err) {
		return apperr.Wrap(apperr.KindTransactionConflict, err, msg)
	}
	return err
}

type pgLedgerTx struct{ tx pgx.Tx }

// DecrementIfAvailable relies on the row lock taken by UPDATE: a concurrent
// writer blocks, then the predicate is re-checked against the committed row.
func (t pgLedgerTx) DecrementIfAvailable(ctx context.Context, id string, qty int) (*Product, error) {
	row := t.tx.QueryRow(ctx, `
		UPDATE products
		   SET stock_qty = stock_qty - $2, version = version + 1, updated_at = now()
		 WHERE id = $1 AND stock_qty >= $2
		RETURNING `+productColumns, id, qty)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) Snapshots(ctx context.Context, ids []string) (map[string]Snapshot, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, name, price, currency, stock_qty, status
		  FROM products WHERE id = ANY($1::bpchar[])`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query snapshots")
	}
	defer rows.Close()

	out := make(map[string]Snapshot, len(ids))
	for rows.Next() {
		var sn Snapshot
		var status string
		if err := rows.Scan(&sn.ID, &sn.Name, &sn.Price, &sn.Currency, &sn.StockQty, &status); err != nil {
			return nil, errors.Wrap(err, "scan snapshot")
		}
		sn.Status = Status(status)
		out[sn.ID] = sn
	}
	return out, errors.Wrap(rows.Err(), "iterate snapshots")
}

func (s *Store) Create(ctx context.Context, p *Product) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO products(`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Price, p.Currency, p.StockQty, string(p.Status), p.Version, p.CreatedAt, p.UpdatedAt)
	return errors.Wrap(err, "insert product")
}

func (s *Store) Get(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound()
	}
	return p, errors.Wrap(err, "get product")
}

func (s *Store) List(ctx context.Context, q ListQuery) ([]Product, int, error) {
	where, args := []string{"TRUE"}, []any{}
	if q.Q != "" {
		args = append(args, "%"+escapeLike(q.Q)+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT count(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY updated_at DESC, id LIMIT $%d OFFSET $%d`,
		productColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	out := make([]Product, 0, q.PageSize)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "scan product")
		}
		out = append(out, *p)
	}
	return out, total, errors.Wrap(rows.Err(), "iterate products")
}

func (s *Store) Update(ctx context.Context, id string, patch ProductPatch) (*Product, error) {
	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}
	p, err := scanProduct(s.DB.QueryRow(ctx, `
		UPDATE products
		   SET name      = COALESCE($2, name),
		       price     = COALESCE($3, price),
		       currency  = COALESCE($4, currency),
		       stock_qty = COALESCE($5, stock_qty),
		       status    = COALESCE($6, status),
		       version   = version + 1,
		       updated_at = now()
		 WHERE id = $1 AND ($7::int IS NULL OR version = $7)
		RETURNING `+productColumns,
		id, patch.Name, patch.Price, patch.Currency, patch.StockQty, status, patch.Version))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(err, "update product")
	}

	// nothing matched: missing row or stale version
	var current int
	err = s.DB.QueryRow(ctx, `SELECT version FROM products WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && patch.Version == nil) {
		return nil, apperr.NotFound()
	}
	if err != nil {
		return nil, errors.Wrap(err, "read product version")
	}
	return nil, apperr.New(apperr.KindVersionConflict, map[string]any{"expected": *patch.Version, "actual": current})
}

func (s *Store) Delete(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound()
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
