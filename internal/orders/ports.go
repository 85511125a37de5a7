package orders

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/catalogclient"
	"github.com/pkg/errors"
)

// ErrDuplicateNumber is returned by Insert when the order number is taken.
var ErrDuplicateNumber = errors.New("order number already exists")

type OrderRepository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, q ListQuery) ([]Order, int, error)
	// Transition holds the order exclusively while apply decides the target
	// status, and persists it only when it differs. An apply error aborts
	// without writing.
	Transition(ctx context.Context, id string, apply func(o Order) (Status, error)) (*Order, error)
	Delete(ctx context.Context, id string) error
}

type CustomerRepository interface {
	InsertCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	ListCustomers(ctx context.Context, q CustomerQuery) ([]Customer, int, error)
	UpdateCustomer(ctx context.Context, id string, p CustomerPatch) (*Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
}

type CartRepository interface {
	// InsertCart creates the customer's cart, or returns the one that already
	// exists with existed=true.
	InsertCart(ctx context.Context, c *Cart) (cart *Cart, existed bool, err error)
	GetCart(ctx context.Context, id string) (*Cart, error)
	ListCarts(ctx context.Context, q CartQuery) ([]Cart, int, error)
	// SetCartLine replaces the line of productID, appending it when new. A nil
	// line removes it; removing an absent line is not an error.
	SetCartLine(ctx context.Context, id, productID string, line *LineItem) (*Cart, error)
	DeleteCart(ctx context.Context, id string) error
}

// Catalog is the order side view of the catalog service.
type Catalog interface {
	Lookup(ctx context.Context, ids []string) ([]catalogclient.ProductSnapshot, error)
	Reserve(ctx context.Context, lines []catalogclient.Line) ([]catalogclient.Result, error)
}
