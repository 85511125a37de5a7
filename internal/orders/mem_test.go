package orders

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/catalogclient"
	"sync"
)

const (
	custID = "650000000000000000000001"
	prodA  = "650000000000000000000a01"
	prodB  = "650000000000000000000b02"
)

type memRepo struct {
	mu        sync.Mutex
	orders    map[string]Order
	customers map[string]Customer
	carts     map[string]Cart
	numbers   map[string]bool
	dupes     int // Insert calls to fail with ErrDuplicateNumber
	inserts   int
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:    map[string]Order{},
		customers: map[string]Customer{custID: {ID: custID, Email: "a@example.com", Name: "Ann"}},
		carts:     map[string]Cart{},
		numbers:   map[string]bool{},
	}
}

func (r *memRepo) Insert(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	if r.dupes > 0 {
		r.dupes--
		return ErrDuplicateNumber
	}
	if r.numbers[o.OrderNumber] {
		return ErrDuplicateNumber
	}
	r.numbers[o.OrderNumber] = true
	cp := *o
	cp.Items = append([]LineItem(nil), o.Items...)
	r.orders[o.ID] = cp
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.NotFound()
	}
	return &o, nil
}

func (r *memRepo) List(_ context.Context, q ListQuery) ([]Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		if (q.Status == "" || o.Status == q.Status) && (q.CustomerID == "" || o.CustomerID == q.CustomerID) {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

// Transition holds the lock for the whole apply call, like a row lock.
func (r *memRepo) Transition(_ context.Context, id string, apply func(o Order) (Status, error)) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.NotFound()
	}
	to, err := apply(o)
	if err != nil {
		return nil, err
	}
	o.Status = to
	r.orders[id] = o
	return &o, nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return apperr.NotFound()
	}
	delete(r.orders, id)
	return nil
}

func (r *memRepo) InsertCustomer(_ context.Context, c *Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[c.ID] = *c
	return nil
}

func (r *memRepo) GetCustomer(_ context.Context, id string) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, apperr.NotFound()
	}
	return &c, nil
}

func (r *memRepo) ListCustomers(_ context.Context, _ CustomerQuery) ([]Customer, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *memRepo) UpdateCustomer(_ context.Context, id string, p CustomerPatch) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, apperr.NotFound()
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	r.customers[id] = c
	return &c, nil
}

func (r *memRepo) DeleteCustomer(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[id]; !ok {
		return apperr.NotFound()
	}
	delete(r.customers, id)
	return nil
}

func (r *memRepo) InsertCart(_ context.Context, c *Cart) (*Cart, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.carts {
		if existing.CustomerID == c.CustomerID {
			return &existing, true, nil
		}
	}
	r.carts[c.ID] = *c
	return c, false, nil
}

func (r *memRepo) GetCart(_ context.Context, id string) (*Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[id]
	if !ok {
		return nil, apperr.NotFound()
	}
	return &c, nil
}

func (r *memRepo) ListCarts(_ context.Context, q CartQuery) ([]Cart, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Cart
	for _, c := range r.carts {
		if q.CustomerID == "" || c.CustomerID == q.CustomerID {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (r *memRepo) SetCartLine(_ context.Context, id, productID string, line *LineItem) (*Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[id]
	if !ok {
		return nil, apperr.NotFound()
	}
	items := make([]LineItem, 0, len(c.Items)+1)
	replaced := false
	for _, it := range c.Items {
		if it.ProductID != productID {
			items = append(items, it)
			continue
		}
		if line != nil {
			items = append(items, *line)
		}
		replaced = true
	}
	if !replaced && line != nil {
		items = append(items, *line)
	}
	c.Items = items
	r.carts[id] = c
	return &c, nil
}

func (r *memRepo) DeleteCart(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.carts[id]; !ok {
		return apperr.NotFound()
	}
	delete(r.carts, id)
	return nil
}

type fakeCatalog struct {
	mu         sync.Mutex
	products   map[string]catalogclient.ProductSnapshot
	reserveErr error
	reserved   [][]catalogclient.Line
	lookups    int
}

func (c *fakeCatalog) Lookup(_ context.Context, ids []string) ([]catalogclient.ProductSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	var out []catalogclient.ProductSnapshot
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *fakeCatalog) Reserve(_ context.Context, lines []catalogclient.Line) ([]catalogclient.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reserveErr != nil {
		return nil, c.reserveErr
	}
	c.reserved = append(c.reserved, lines)
	out := make([]catalogclient.Result, 0, len(lines))
	for _, l := range lines {
		p := c.products[l.ProductID]
		p.StockQty -= l.Qty
		c.products[l.ProductID] = p
		out = append(out, catalogclient.Result{ProductID: l.ProductID, StockQty: p.StockQty})
	}
	return out, nil
}
