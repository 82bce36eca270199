package events

import (
	"encoding/json"
	"github.com/shopspring/decimal"
	"time"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventCartItemAdded      = "CartItemAdded"

	Version = 1
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "storefront-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order number atau session
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
	Color     string          `json:"color,omitempty"`
	Size      string          `json:"size,omitempty"`
}

type OrderPlacedPayload struct {
	OrderID      string          `json:"order_id"`
	OrderNumber  int64           `json:"order_number"`
	CustomerID   string          `json:"customer_id"`
	Items        []OrderItem     `json:"items"`
	TotalAmount  decimal.Decimal `json:"total_amount"` // products only
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Status       string          `json:"status"`
}

type OrderStatusChangedPayload struct {
	OrderNumber int64     `json:"order_number"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	ChangedAt   time.Time `json:"changed_at"`
}

type CartItemAddedPayload struct {
	LineID    string `json:"line_id"`
	ProductID string `json:"product_id"`
	Color     string `json:"color,omitempty"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"` // quantity after merge
}
