package inventory

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/events"
	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	"sort"
	"sync"
)

// memLedger is an in-memory Ledger and ProductStore. Transactions are
// serialized and work on a copy that replaces the state only on commit.
type memLedger struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	products map[string]Product
	beginErr error
	txCount  int
}

func newMemLedger(ps ...Product) *memLedger {
	m := &memLedger{products: map[string]Product{}}
	for _, p := range ps {
		if p.Version == 0 {
			p.Version = 1
		}
		if p.Status == "" {
			p.Status = StatusActive
		}
		m.products[p.ID] = p
	}
	return m
}

func (m *memLedger) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].StockQty
}

func (m *memLedger) Snapshots(_ context.Context, ids []string) (map[string]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]Snapshot{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p.Snapshot()
		}
	}
	return out, nil
}

func (m *memLedger) WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	if m.beginErr != nil {
		return apperr.Wrap(apperr.KindTransactionUnavailable, m.beginErr, "begin")
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	m.txCount++
	work := make(map[string]Product, len(m.products))
	for k, v := range m.products {
		work[k] = v
	}
	m.mu.Unlock()

	if err := fn(&memTx{work: work}); err != nil {
		return err
	}
	m.mu.Lock()
	m.products = work
	m.mu.Unlock()
	return nil
}

type memTx struct{ work map[string]Product }

func (t *memTx) DecrementIfAvailable(_ context.Context, id string, qty int) (*Product, error) {
	p, ok := t.work[id]
	if !ok || p.StockQty < qty {
		return nil, nil
	}
	p.StockQty -= qty
	p.Version++
	t.work[id] = p
	return &p, nil
}

func (m *memLedger) Create(_ context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = *p
	return nil
}

func (m *memLedger) Get(_ context.Context, id string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, apperr.NotFound()
	}
	return &p, nil
}

func (m *memLedger) List(_ context.Context, q ListQuery) ([]Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Product
	for _, p := range m.products {
		if q.Status == "" || p.Status == q.Status {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, len(all), nil
}

func (m *memLedger) Update(_ context.Context, id string, patch ProductPatch) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, apperr.NotFound()
	}
	if patch.Version != nil && *patch.Version != p.Version {
		return nil, apperr.New(apperr.KindVersionConflict, map[string]any{"expected": *patch.Version, "actual": p.Version})
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Currency != nil {
		p.Currency = *patch.Currency
	}
	if patch.StockQty != nil {
		p.StockQty = *patch.StockQty
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	p.Version++
	m.products[id] = p
	return &p, nil
}

func (m *memLedger) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return apperr.NotFound()
	}
	delete(m.products, id)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	topics []string
}

func (s *recordingSink) Publish(topic string, _, _ []byte, _ ...kafkago.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.topics)
}

var errDown = errors.New("connection refused")

func emitter(s *recordingSink) *events.Emitter {
	return &events.Emitter{Sink: s, Producer: "catalog-test"}
}
