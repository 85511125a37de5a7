package inventory

import (
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"github.com/ariefcatur/go-catalog-orders/internal/ids"
	"github.com/shopspring/decimal"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool { return s == StatusActive || s == StatusInactive }

const DefaultCurrency = "USD"

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	StockQty  int             `json:"stockQty"`
	Status    Status          `json:"status"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Snapshot is the read-only projection served to the order service.
type Snapshot struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	StockQty int             `json:"stockQty"`
	Status   Status          `json:"status"`
}

func (p *Product) Snapshot() Snapshot {
	return Snapshot{ID: p.ID, Name: p.Name, Price: p.Price, Currency: p.Currency, StockQty: p.StockQty, Status: p.Status}
}

// Line is one requested decrement of a reservation batch.
type Line struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

// Result is the stock left for a line once the whole batch committed.
type Result struct {
	ProductID string `json:"productId"`
	StockQty  int    `json:"stockQty"`
}

type ProductInput struct {
	Name     string           `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Currency string           `json:"currency"`
	StockQty *int             `json:"stockQty"`
	Status   Status           `json:"status"`
}

// ProductPatch carries only the fields present in the request body.
// Version, when set, must match the stored version.
type ProductPatch struct {
	Name     *string          `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Currency *string          `json:"currency"`
	StockQty *int             `json:"stockQty"`
	Status   *Status          `json:"status"`
	Version  *int             `json:"version"`
}

func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Price == nil && p.Currency == nil && p.StockQty == nil && p.Status == nil
}

type ListQuery struct {
	Q        string
	Status   Status
	Page     int
	PageSize int
}

func (in *ProductInput) normalize() error {
	var issues []apperr.Issue
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		issues = append(issues, apperr.Issue{Path: "name", Message: "required"})
	}
	if in.Price == nil {
		issues = append(issues, apperr.Issue{Path: "price", Message: "required"})
	} else if in.Price.IsNegative() {
		issues = append(issues, apperr.Issue{Path: "price", Message: "must be >= 0"})
	}
	if in.StockQty == nil {
		issues = append(issues, apperr.Issue{Path: "stockQty", Message: "required"})
	} else if *in.StockQty < 0 {
		issues = append(issues, apperr.Issue{Path: "stockQty", Message: "must be >= 0"})
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	if in.Status == "" {
		in.Status = StatusActive
	} else if !in.Status.Valid() {
		issues = append(issues, apperr.Issue{Path: "status", Message: "must be active or inactive"})
	}
	if len(issues) > 0 {
		return apperr.Validation(issues...)
	}
	return nil
}

func (p *ProductPatch) normalize() error {
	var issues []apperr.Issue
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" {
			issues = append(issues, apperr.Issue{Path: "name", Message: "must not be empty"})
		}
		p.Name = &n
	}
	if p.Price != nil && p.Price.IsNegative() {
		issues = append(issues, apperr.Issue{Path: "price", Message: "must be >= 0"})
	}
	if p.Currency != nil {
		c := strings.ToUpper(strings.TrimSpace(*p.Currency))
		if c == "" {
			issues = append(issues, apperr.Issue{Path: "currency", Message: "must not be empty"})
		}
		p.Currency = &c
	}
	if p.StockQty != nil && *p.StockQty < 0 {
		issues = append(issues, apperr.Issue{Path: "stockQty", Message: "must be >= 0"})
	}
	if p.Status != nil && !p.Status.Valid() {
		issues = append(issues, apperr.Issue{Path: "status", Message: "must be active or inactive"})
	}
	if p.Version != nil && *p.Version < 1 {
		issues = append(issues, apperr.Issue{Path: "version", Message: "must be >= 1"})
	}
	if len(issues) > 0 {
		return apperr.Validation(issues...)
	}
	return nil
}

// ValidateLines rejects malformed reservation input before any storage access.
func ValidateLines(lines []Line) error {
	if len(lines) == 0 {
		return apperr.Validation(apperr.Issue{Path: "lines", Message: "at least one line is required"})
	}
	var issues []apperr.Issue
	for i := range lines {
		path := "lines." + strconv.Itoa(i)
		id, ok := ids.Parse(lines[i].ProductID)
		if !ok {
			issues = append(issues, apperr.Issue{Path: path + ".productId", Message: "invalid id"})
		} else {
			lines[i].ProductID = id
		}
		if lines[i].Qty <= 0 {
			issues = append(issues, apperr.Issue{Path: path + ".qty", Message: "must be a positive integer"})
		}
	}
	if len(issues) > 0 {
		return apperr.Validation(issues...)
	}
	return nil
}

// ValidateIDs normalizes a lookup id list.
func ValidateIDs(in []string) ([]string, error) {
	if len(in) == 0 {
		return nil, apperr.Validation(apperr.Issue{Path: "ids", Message: "at least one id is required"})
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	var issues []apperr.Issue
	for i, raw := range in {
		id, ok := ids.Parse(raw)
		if !ok {
			issues = append(issues, apperr.Issue{Path: "ids." + strconv.Itoa(i), Message: "invalid id"})
			continue
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if len(issues) > 0 {
		return nil, apperr.Validation(issues...)
	}
	return out, nil
}
