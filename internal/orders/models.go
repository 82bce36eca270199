package orders

import (
	"github.com/shopspring/decimal"
	"time"
)

type CustomerRecord struct {
	Name        string
	Phone       string
	Address     string
	Governorate string // nama, bukan id
}

type OrderRecord struct {
	CustomerID    string
	TotalAmount   decimal.Decimal // products only, shipping terpisah
	ShippingCost  decimal.Decimal
	GovernorateID string
	Notes         string
	Status        Status
}

type OrderRef struct {
	ID     string
	Number int64
}

type ItemRecord struct {
	OrderID        string
	ProductID      string
	Quantity       int
	UnitPrice      decimal.Decimal
	Color          string
	Size           string
	ProductDetails string // snapshot, bukan hasil join ke products
}

type TrackedItem struct {
	ProductID      string          `json:"product_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"price"`
	Color          string          `json:"color,omitempty"`
	Size           string          `json:"size,omitempty"`
	ProductDetails string          `json:"product_details"`
}

type TrackedOrder struct {
	Number       int64           `json:"order_number"`
	Status       Status          `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Notes        string          `json:"notes,omitempty"`
	Customer     string          `json:"customer_name"`
	Governorate  string          `json:"governorate_name"`
	CreatedAt    time.Time       `json:"created_at"`
	Items        []TrackedItem   `json:"items"`
}

// GrandTotal is computed for display only; it is never stored.
func (o TrackedOrder) GrandTotal() decimal.Decimal { return o.TotalAmount.Add(o.ShippingCost) }
