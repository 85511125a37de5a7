package orders

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"testing"
)

func newCart(t *testing.T, s *Service) *Cart {
	t.Helper()
	c, existed, err := s.CreateCart(context.Background(), CartInput{CustomerID: custID})
	if err != nil || existed {
		t.Fatalf("CreateCart = %v, existed=%v", err, existed)
	}
	return c
}

func TestCreateCartIsIdempotentPerCustomer(t *testing.T) {
	repo := newMemRepo()
	s := newService(repo, stockedCatalog())

	first := newCart(t, s)
	again, existed, err := s.CreateCart(context.Background(), CartInput{CustomerID: custID})
	if err != nil || !existed || again.ID != first.ID {
		t.Fatalf("second create = %+v existed=%v err=%v", again, existed, err)
	}
	if len(repo.carts) != 1 {
		t.Fatalf("carts = %d, want 1", len(repo.carts))
	}

	_, _, err = s.CreateCart(context.Background(), CartInput{CustomerID: "650000000000000000000fff"})
	if !apperr.IsKind(err, apperr.KindCustomerNotFound) {
		t.Fatalf("unknown customer err = %v", err)
	}
	if _, _, err = s.CreateCart(context.Background(), CartInput{CustomerID: "nope"}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("bad id err = %v", err)
	}
}

func TestSetCartLineUpsertsAndRemoves(t *testing.T) {
	s := newService(newMemRepo(), stockedCatalog())
	ctx := context.Background()
	c := newCart(t, s)

	if _, err := s.SetCartLine(ctx, c.ID, CartLineInput{ProductID: prodA, Qty: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetCartLine(ctx, c.ID, CartLineInput{ProductID: prodB, Qty: 1}); err != nil {
		t.Fatal(err)
	}
	got, err := s.SetCartLine(ctx, c.ID, CartLineInput{ProductID: prodA, Qty: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 2 || got.Items[0].ProductID != prodA || got.Items[0].Qty != 3 || got.Items[0].NameSnapshot != "Keyboard" {
		t.Fatalf("items after replace = %+v", got.Items)
	}

	got, err = s.SetCartLine(ctx, c.ID, CartLineInput{ProductID: prodA, Qty: 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 1 || got.Items[0].ProductID != prodB {
		t.Fatalf("items after removal = %+v", got.Items)
	}
	// removing an absent line is a no-op
	if got, err = s.SetCartLine(ctx, c.ID, CartLineInput{ProductID: prodA, Qty: 0}); err != nil || len(got.Items) != 1 {
		t.Fatalf("second removal = %+v, %v", got, err)
	}
}

func TestSetCartLineRejectsUnavailable(t *testing.T) {
	cat := stockedCatalog()
	s := newService(newMemRepo(), cat)
	c := newCart(t, s)

	p := cat.products[prodA]
	p.Status = "inactive"
	cat.products[prodA] = p
	_, err := s.SetCartLine(context.Background(), c.ID, CartLineInput{ProductID: prodA, Qty: 1})
	if e, ok := apperr.As(err); !ok || e.Kind != apperr.KindUnavailable || e.Detail("productId") != prodA {
		t.Fatalf("inactive: err = %v", err)
	}

	// prodB has one in stock
	if _, err = s.SetCartLine(context.Background(), c.ID, CartLineInput{ProductID: prodB, Qty: 2}); !apperr.IsKind(err, apperr.KindUnavailable) {
		t.Fatalf("short: err = %v", err)
	}
	got, _ := s.GetCart(context.Background(), c.ID)
	if len(got.Items) != 0 {
		t.Fatalf("rejected lines were stored: %+v", got.Items)
	}
}

func TestSetCartLineValidation(t *testing.T) {
	cat := stockedCatalog()
	s := newService(newMemRepo(), cat)
	c := newCart(t, s)

	_, err := s.SetCartLine(context.Background(), c.ID, CartLineInput{ProductID: "x", Qty: 10000})
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindValidation || len(e.Issues) != 2 {
		t.Fatalf("err = %v", err)
	}
	if _, err := s.SetCartLine(context.Background(), "650000000000000000000eee", CartLineInput{ProductID: prodA, Qty: 1}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("missing cart err = %v", err)
	}
	if cat.lookups != 0 {
		t.Fatalf("catalog asked %d times for rejected input", cat.lookups)
	}
}

func TestSetCartLineDevBypass(t *testing.T) {
	s := newService(newMemRepo(), &fakeCatalog{})
	s.DevBypass = true
	c := newCart(t, s)

	got, err := s.SetCartLine(context.Background(), c.ID, CartLineInput{ProductID: prodA, Qty: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got.Items[0].NameSnapshot != "DEV-PRODUCT-000a01" || got.Items[0].PriceSnapshot.StringFixed(2) != "99.99" {
		t.Fatalf("items = %+v", got.Items)
	}
}
