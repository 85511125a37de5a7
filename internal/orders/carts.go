package orders

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/ids"
)

const maxCartQty = 9999

// CreateCart returns the customer's cart, creating an empty one on first use.
// existed reports that no new cart was made.
func (s *Service) CreateCart(ctx context.Context, in CartInput) (*Cart, bool, error) {
	customerID, ok := ids.Parse(in.CustomerID)
	if !ok {
		return nil, false, invalidID("customerId")
	}
	if _, err := s.Customers.GetCustomer(ctx, customerID); err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, false, apperr.New(apperr.KindCustomerNotFound, map[string]any{"customerId": customerID})
		}
		return nil, false, err
	}
	now := s.now()
	return s.Carts.InsertCart(ctx, &Cart{ID: ids.New(), CustomerID: customerID, Items: []LineItem{}, CreatedAt: now, UpdatedAt: now})
}

func (s *Service) GetCart(ctx context.Context, rawID string) (*Cart, error) {
	id, ok := ids.Parse(rawID)
	if !ok {
		return nil, invalidID("id")
	}
	return s.Carts.GetCart(ctx, id)
}

func (s *Service) ListCarts(ctx context.Context, q CartQuery) ([]Cart, int, error) {
	if q.CustomerID != "" {
		id, ok := ids.Parse(q.CustomerID)
		if !ok {
			return nil, 0, invalidID("customerId")
		}
		q.CustomerID = id
	}
	return s.Carts.ListCarts(ctx, q)
}

// SetCartLine upserts one line of the cart. A positive qty snapshots the
// product the same way order creation does, so an unknown, inactive or short
// product is Unavailable. Qty 0 drops the line without asking the catalog.
func (s *Service) SetCartLine(ctx context.Context, rawID string, in CartLineInput) (*Cart, error) {
	id, ok := ids.Parse(rawID)
	if !ok {
		return nil, invalidID("id")
	}
	var issues []apperr.Issue
	productID, ok := ids.Parse(in.ProductID)
	if !ok {
		issues = append(issues, apperr.Issue{Path: "productId", Message: "invalid id"})
	}
	if in.Qty < 0 || in.Qty > maxCartQty {
		issues = append(issues, apperr.Issue{Path: "qty", Message: "must be between 0 and 9999"})
	}
	if len(issues) > 0 {
		return nil, apperr.Validation(issues...)
	}

	if in.Qty == 0 {
		return s.Carts.SetCartLine(ctx, id, productID, nil)
	}
	if _, err := s.Carts.GetCart(ctx, id); err != nil {
		return nil, err
	}
	lines, _, err := s.snapshot(ctx, []ItemInput{{ProductID: productID, Qty: in.Qty}})
	if err != nil {
		return nil, err
	}
	return s.Carts.SetCartLine(ctx, id, productID, &lines[0])
}

func (s *Service) DeleteCart(ctx context.Context, rawID string) error {
	id, ok := ids.Parse(rawID)
	if !ok {
		return invalidID("id")
	}
	return s.Carts.DeleteCart(ctx, id)
}
