package orders

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/ids"
	"net/mail"
	"strings"
)

func (s *Service) CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error) {
	email, name := strings.TrimSpace(in.Email), strings.TrimSpace(in.Name)
	var issues []apperr.Issue
	if !validEmail(email) {
		issues = append(issues, apperr.Issue{Path: "email", Message: "invalid email"})
	}
	if name == "" {
		issues = append(issues, apperr.Issue{Path: "name", Message: "required"})
	}
	if len(issues) > 0 {
		return nil, apperr.Validation(issues...)
	}
	now := s.now()
	c := &Customer{ID: ids.New(), Email: email, Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.Customers.InsertCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) GetCustomer(ctx context.Context, rawID string) (*Customer, error) {
	id, ok := ids.Parse(rawID)
	if !ok {
		return nil, invalidID("id")
	}
	return s.Customers.GetCustomer(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context, q CustomerQuery) ([]Customer, int, error) {
	q.Q = strings.TrimSpace(q.Q)
	return s.Customers.ListCustomers(ctx, q)
}

func (s *Service) UpdateCustomer(ctx context.Context, rawID string, p CustomerPatch) (*Customer, error) {
	id, ok := ids.Parse(rawID)
	if !ok {
		return nil, invalidID("id")
	}
	if p.Email == nil && p.Name == nil {
		return nil, apperr.New(apperr.KindEmptyUpdate, nil)
	}
	var issues []apperr.Issue
	if p.Email != nil {
		e := strings.TrimSpace(*p.Email)
		if !validEmail(e) {
			issues = append(issues, apperr.Issue{Path: "email", Message: "invalid email"})
		}
		p.Email = &e
	}
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" {
			issues = append(issues, apperr.Issue{Path: "name", Message: "must not be empty"})
		}
		p.Name = &n
	}
	if len(issues) > 0 {
		return nil, apperr.Validation(issues...)
	}
	return s.Customers.UpdateCustomer(ctx, id, p)
}

func (s *Service) DeleteCustomer(ctx context.Context, rawID string) error {
	id, ok := ids.Parse(rawID)
	if !ok {
		return invalidID("id")
	}
	return s.Customers.DeleteCustomer(ctx, id)
}

// bare addresses only, no display name
func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}
