package orders

import (
	"github.com/shopspring/decimal"
	"time"
)

type Order struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	CustomerID  string          `json:"customerId"`
	Items       []LineItem      `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Currency    string          `json:"currency"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// LineItem is frozen at creation; it is never re-read from the catalog.
type LineItem struct {
	ProductID     string          `json:"productId"`
	NameSnapshot  string          `json:"nameSnapshot"`
	PriceSnapshot decimal.Decimal `json:"priceSnapshot"`
	Qty           int             `json:"qty"`
}

func (o *Order) ComputeSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.PriceSnapshot.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return sum
}

type Customer struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ItemInput struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

type CreateInput struct {
	CustomerID string      `json:"customerId"`
	Items      []ItemInput `json:"items"`
}

type ListQuery struct {
	Status     Status
	CustomerID string
	Page       int
	PageSize   int
}

type CustomerInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type CustomerPatch struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

// Cart is a customer's working basket. Lines carry the same snapshots as
// order lines, taken when the line was last set.
type Cart struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customerId"`
	Items      []LineItem `json:"items"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

type CartInput struct {
	CustomerID string `json:"customerId"`
}

// CartLineInput sets one line; Qty 0 removes it.
type CartLineInput struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

type CartQuery struct {
	CustomerID string
	Page       int
	PageSize   int
}

type CustomerQuery struct {
	Q        string
	Page     int
	PageSize int
}
