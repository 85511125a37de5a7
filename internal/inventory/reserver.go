package inventory

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/events"
	"github.com/ariefcatur/go-catalog-orders/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Reserver applies a batch of stock decrements as one all-or-nothing unit.
type Reserver struct {
	Ledger Ledger
	Events *events.Emitter
	Log    zerolog.Logger
}

// Reserve decrements every line in order inside one transaction. The first
// line whose stock is short aborts the batch with InsufficientStock and rolls
// back the lines already applied.
func (r *Reserver) Reserve(ctx context.Context, lines []Line) ([]Result, error) {
	if err := ValidateLines(lines); err != nil {
		metrics.Reservations.WithLabelValues("invalid").Inc()
		return nil, err
	}

	var results []Result
	err := r.Ledger.WithinTx(ctx, func(tx LedgerTx) error {
		out := make([]Result, 0, len(lines))
		for _, l := range lines {
			p, err := tx.DecrementIfAvailable(ctx, l.ProductID, l.Qty)
			if err != nil {
				return errors.Wrapf(err, "decrement %s", l.ProductID)
			}
			if p == nil {
				return apperr.InsufficientStock(l.ProductID)
			}
			out = append(out, Result{ProductID: l.ProductID, StockQty: p.StockQty})
		}
		results = out
		return nil
	})
	if err != nil {
		outcome := "error"
		switch apperr.KindOf(err) {
		case apperr.KindInsufficientStock:
			outcome = "insufficient_stock"
		case apperr.KindTransactionUnavailable:
			outcome = "tx_unavailable"
		case apperr.KindTransactionConflict:
			outcome = "tx_conflict"
		}
		metrics.Reservations.WithLabelValues(outcome).Inc()
		r.Log.Warn().Err(err).Int("lines", len(lines)).Msg("reservation rejected")
		return nil, err
	}

	metrics.Reservations.WithLabelValues("committed").Inc()
	r.publish(ctx, results)
	return results, nil
}

func (r *Reserver) publish(ctx context.Context, results []Result) {
	payload := events.StockReservedPayload{Lines: make([]events.StockLine, 0, len(results))}
	for _, res := range results {
		payload.Lines = append(payload.Lines, events.StockLine{ProductID: res.ProductID, StockQty: res.StockQty})
	}
	r.Events.Emit(ctx, events.TopicStockReserved, events.TypeStockReserved, results[0].ProductID, payload)
}
