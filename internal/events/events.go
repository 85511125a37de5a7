// Package events defines the envelope and payloads exchanged over Kafka
// between the catalog and order services.
package events

import (
	"encoding/json"
	"time"
)

const (
	TypeStockReserved      = "StockReserved"
	TypeProductChanged     = "ProductChanged"
	TypeOrderCreated       = "OrderCreated"
	TypeOrderStatusChanged = "OrderStatusChanged"
)

const (
	TopicStockReserved      = "inventory.stock.reserved"
	TopicProductChanged     = "catalog.product.changed"
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
)

type Envelope struct {
	EventID       string          `json:"event_id"` // uuid
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type StockLine struct {
	ProductID string `json:"product_id"`
	StockQty  int    `json:"stock_qty"`
}

type StockReservedPayload struct {
	Lines []StockLine `json:"lines"`
}

// ProductChangedPayload is emitted on admin create, update and delete.
type ProductChangedPayload struct {
	ProductID string `json:"product_id"`
	Change    string `json:"change"` // created | updated | deleted
	Version   int    `json:"version,omitempty"`
}

type OrderLine struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Price     string `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID     string      `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	CustomerID  string      `json:"customer_id"`
	Items       []OrderLine `json:"items"`
	Subtotal    string      `json:"subtotal"`
	Currency    string      `json:"currency"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// PartitionKey keeps every event of one aggregate on one partition.
func PartitionKey(id string) []byte { return []byte(id) }

func Decode[T any](env Envelope) (T, error) {
	var t T
	err := json.Unmarshal(env.Payload, &t)
	return t, err
}
