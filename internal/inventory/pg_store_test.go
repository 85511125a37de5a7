package inventory

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/ids"
	"github.com/ariefcatur/go-catalog-orders/internal/postgres"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func pgStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("CATALOG_TEST_DSN")
	if dsn == "" {
		t.Skipf("CATALOG_TEST_DSN not set, skipping postgres integration test")
	}
	ctx := context.Background()
	db, err := postgres.Connect(ctx, dsn, 16)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(db.Close)
	if err := postgres.Migrate(ctx, db, postgres.SchemaCatalog); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &Store{DB: db}
}

func seed(t *testing.T, s *Store, stock int) string {
	t.Helper()
	now := time.Now().UTC()
	p := &Product{ID: ids.New(), Name: "seed", Price: decimal.RequireFromString("10.00"), Currency: "USD",
		StockQty: stock, Status: StatusActive, Version: 1, CreatedAt: now, UpdatedAt: now}
	if err := s.Create(context.Background(), p); err != nil {
		t.Fatalf("seed: %v", err)
	}
	t.Cleanup(func() { _ = s.Delete(context.Background(), p.ID) })
	return p.ID
}

func TestPgReserveRollback(t *testing.T) {
	s := pgStore(t)
	a, b := seed(t, s, 5), seed(t, s, 1)
	r := &Reserver{Ledger: s, Log: zerolog.Nop()}

	_, err := r.Reserve(context.Background(), []Line{{a, 2}, {b, 2}})
	if !apperr.IsKind(err, apperr.KindInsufficientStock) {
		t.Fatalf("err = %v", err)
	}
	snaps, err := s.Snapshots(context.Background(), []string{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if snaps[a].StockQty != 5 || snaps[b].StockQty != 1 {
		t.Fatalf("rollback failed: %+v", snaps)
	}

	res, err := r.Reserve(context.Background(), []Line{{a, 2}, {b, 1}})
	if err != nil || res[0].StockQty != 3 || res[1].StockQty != 0 {
		t.Fatalf("reserve = %+v, %v", res, err)
	}
	p, _ := s.Get(context.Background(), a)
	if p.Version != 2 {
		t.Fatalf("version = %d, want 2", p.Version)
	}
}

func TestPgConcurrentDecrement(t *testing.T) {
	s := pgStore(t)
	a := seed(t, s, 10)
	r := &Reserver{Ledger: s, Log: zerolog.Nop()}

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Reserve(context.Background(), []Line{{a, 1}}); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	p, err := s.Get(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	if ok.Load() != 10 || p.StockQty != 0 {
		t.Fatalf("ok=%d stock=%d", ok.Load(), p.StockQty)
	}
}

func TestPgUpdateVersionConflict(t *testing.T) {
	s := pgStore(t)
	a := seed(t, s, 3)
	name := "renamed"

	p, err := s.Update(context.Background(), a, ProductPatch{Name: &name, Version: intp(1)})
	if err != nil || p.Version != 2 {
		t.Fatalf("update = %+v, %v", p, err)
	}
	if _, err := s.Update(context.Background(), a, ProductPatch{Name: &name, Version: intp(1)}); !apperr.IsKind(err, apperr.KindVersionConflict) {
		t.Fatalf("stale update: %v", err)
	}
	if _, err := s.Update(context.Background(), ids.New(), ProductPatch{Name: &name}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("missing: %v", err)
	}
}

func TestTxErrorClassifiesConflicts(t *testing.T) {
	for _, code := range []string{"40P01", "40001"} {
		err := txError(errors.Wrap(&pgconn.PgError{Code: code}, "decrement"), "reservation tx")
		if !apperr.IsKind(err, apperr.KindTransactionConflict) || !apperr.Retryable(err) {
			t.Errorf("%s: err = %v, want retryable TransactionConflict", code, err)
		}
	}
	short := apperr.InsufficientStock(idA)
	if err := txError(short, "reservation tx"); err != short {
		t.Fatalf("taxonomy errors must pass through, got %v", err)
	}
	if err := txError(&pgconn.PgError{Code: "23514"}, "reservation tx"); apperr.IsKind(err, apperr.KindTransactionConflict) {
		t.Fatalf("check violation classified as conflict: %v", err)
	}
}
