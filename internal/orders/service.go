package orders

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/catalogclient"
	"github.com/ariefcatur/go-catalog-orders/internal/events"
	"github.com/ariefcatur/go-catalog-orders/internal/ids"
	"github.com/ariefcatur/go-catalog-orders/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"strconv"
	"time"
)

const numberAttempts = 3

var devPrice = decimal.RequireFromString("99.99")

type Service struct {
	Orders    OrderRepository
	Customers CustomerRepository
	Carts     CartRepository
	Catalog   Catalog
	Events    *events.Emitter
	Log       zerolog.Logger

	// DevBypass builds placeholder snapshots instead of calling the catalog.
	DevBypass bool
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create snapshots the requested products and persists a new order in the
// created state. Availability is checked, not reserved: stock is only taken
// when the order is confirmed.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if err := validateCreate(&in); err != nil {
		return nil, err
	}
	if _, err := s.Customers.GetCustomer(ctx, in.CustomerID); err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.New(apperr.KindCustomerNotFound, map[string]any{"customerId": in.CustomerID})
		}
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, apperr.New(apperr.KindEmptyItems, nil)
	}

	items, currency, err := s.snapshot(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &Order{
		ID:         ids.New(),
		CustomerID: in.CustomerID,
		Items:      items,
		Currency:   currency,
		Status:     StatusCreated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	o.Subtotal = o.ComputeSubtotal()

	for attempt := 1; ; attempt++ {
		o.OrderNumber = NewOrderNumber(now)
		err = s.Orders.Insert(ctx, o)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateNumber) || attempt == numberAttempts {
			return nil, err
		}
		s.Log.Warn().Str("order_number", o.OrderNumber).Msg("order number collision, retrying")
	}

	s.Events.Emit(ctx, events.TopicOrderCreated, events.TypeOrderCreated, o.ID, createdPayload(o))
	return o, nil
}

// snapshot resolves name, price and availability of every item. Quantities
// of repeated products are summed before comparing with stock.
func (s *Service) snapshot(ctx context.Context, items []ItemInput) ([]LineItem, string, error) {
	out := make([]LineItem, 0, len(items))
	if s.DevBypass {
		for _, it := range items {
			out = append(out, LineItem{
				ProductID:     it.ProductID,
				NameSnapshot:  "DEV-PRODUCT-" + it.ProductID[len(it.ProductID)-6:],
				PriceSnapshot: devPrice,
				Qty:           it.Qty,
			})
		}
		return out, "USD", nil
	}

	wanted := make(map[string]int, len(items))
	unique := make([]string, 0, len(items))
	for _, it := range items {
		if _, seen := wanted[it.ProductID]; !seen {
			unique = append(unique, it.ProductID)
		}
		wanted[it.ProductID] += it.Qty
	}

	found, err := s.Catalog.Lookup(ctx, unique)
	if err != nil {
		return nil, "", err
	}
	byID := make(map[string]catalogclient.ProductSnapshot, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	currency := ""
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok || p.Status != catalogclient.StatusActive || p.StockQty < wanted[it.ProductID] {
			return nil, "", apperr.Unavailable(it.ProductID)
		}
		c := p.Currency
		if c == "" {
			c = "USD"
		}
		if currency == "" {
			currency = c
		} else if currency != c {
			return nil, "", apperr.Validation(apperr.Issue{Path: "items", Message: "products must share one currency"})
		}
		out = append(out, LineItem{ProductID: it.ProductID, NameSnapshot: p.Name, PriceSnapshot: p.Price, Qty: it.Qty})
	}
	return out, currency, nil
}

func (s *Service) Get(ctx context.Context, rawID string) (*Order, error) {
	id, ok := ids.Parse(rawID)
	if !ok {
		return nil, invalidID("id")
	}
	return s.Orders.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]Order, int, error) {
	if q.Status != "" {
		if _, ok := ParseStatus(string(q.Status)); !ok {
			return nil, 0, apperr.Validation(apperr.Issue{Path: "status", Message: "unknown status"})
		}
	}
	if q.CustomerID != "" {
		id, ok := ids.Parse(q.CustomerID)
		if !ok {
			return nil, 0, invalidID("customerId")
		}
		q.CustomerID = id
	}
	return s.Orders.List(ctx, q)
}

// UpdateStatus applies an administrative status change. Entering confirmed
// reserves the order's lines in the catalog first; when the reservation
// fails the order stays created and the reservation error is returned.
func (s *Service) UpdateStatus(ctx context.Context, rawID, rawStatus string) (*Order, error) {
	id, ok := ids.Parse(rawID)
	if !ok {
		return nil, invalidID("id")
	}
	to, ok := ParseStatus(rawStatus)
	if !ok {
		return nil, apperr.Validation(apperr.Issue{Path: "status", Message: "must be one of created, confirmed, fulfilled, cancelled"})
	}

	var from Status
	o, err := s.Orders.Transition(ctx, id, func(cur Order) (Status, error) {
		from = cur.Status
		changed, err := Transition(&cur, to)
		if err != nil || !changed {
			return cur.Status, err
		}
		if to == StatusConfirmed {
			if err := s.reserve(ctx, cur); err != nil {
				return from, err
			}
		}
		return to, nil
	})
	if err != nil {
		if from != "" {
			metrics.OrderTransitions.WithLabelValues(string(from), string(to), string(apperr.KindOf(err))).Inc()
		}
		return nil, err
	}
	if from != to {
		metrics.OrderTransitions.WithLabelValues(string(from), string(to), "ok").Inc()
		s.Events.Emit(ctx, events.TopicOrderStatusChanged, events.TypeOrderStatusChanged, o.ID,
			events.OrderStatusChangedPayload{OrderID: o.ID, From: string(from), To: string(to)})
	}
	return o, nil
}

func (s *Service) reserve(ctx context.Context, o Order) error {
	if s.DevBypass {
		s.Log.Warn().Str("order_id", o.ID).Msg("catalog bypass: confirming without reservation")
		return nil
	}
	lines := make([]catalogclient.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, catalogclient.Line{ProductID: it.ProductID, Qty: it.Qty})
	}
	if _, err := s.Catalog.Reserve(ctx, lines); err != nil {
		s.Log.Warn().Err(err).Str("order_id", o.ID).Msg("reservation failed, order stays created")
		return err
	}
	return nil
}

// Delete is an administrative override; no status guard applies.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, ok := ids.Parse(rawID)
	if !ok {
		return invalidID("id")
	}
	return s.Orders.Delete(ctx, id)
}

func validateCreate(in *CreateInput) error {
	var issues []apperr.Issue
	if id, ok := ids.Parse(in.CustomerID); ok {
		in.CustomerID = id
	} else {
		issues = append(issues, apperr.Issue{Path: "customerId", Message: "invalid id"})
	}
	for i := range in.Items {
		path := "items." + strconv.Itoa(i)
		if id, ok := ids.Parse(in.Items[i].ProductID); ok {
			in.Items[i].ProductID = id
		} else {
			issues = append(issues, apperr.Issue{Path: path + ".productId", Message: "invalid id"})
		}
		if in.Items[i].Qty <= 0 {
			issues = append(issues, apperr.Issue{Path: path + ".qty", Message: "must be a positive integer"})
		}
	}
	if len(issues) > 0 {
		return apperr.Validation(issues...)
	}
	return nil
}

func createdPayload(o *Order) events.OrderCreatedPayload {
	p := events.OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Subtotal:    o.Subtotal.StringFixed(2),
		Currency:    o.Currency,
		Items:       make([]events.OrderLine, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, events.OrderLine{ProductID: it.ProductID, Qty: it.Qty, Price: it.PriceSnapshot.StringFixed(2)})
	}
	return p
}

func invalidID(path string) error {
	return apperr.Validation(apperr.Issue{Path: path, Message: "invalid id"})
}
