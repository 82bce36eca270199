package pricing

import (
	"encoding/json"
	"fmt"
	"github.com/shopspring/decimal"
)

// Tier: harga per unit yang berlaku begitu total qty >= Threshold.
type Tier struct {
	Threshold int             `json:"quantity_threshold"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Valid reports whether the tier can take part in price resolution.
func (t Tier) Valid() bool { return t.Threshold >= 1 && t.UnitPrice.IsPositive() }

// UnmarshalJSON also accepts the legacy {"min","max","price"} rows still
// stored in products.quantity_pricing. Max is ignored.
func (t *Tier) UnmarshalJSON(b []byte) error {
	var raw struct {
		Threshold *int             `json:"quantity_threshold"`
		UnitPrice *decimal.Decimal `json:"unit_price"`
		Min       *int             `json:"min"`
		Price     *decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode tier: %w", err)
	}
	switch {
	case raw.Threshold != nil:
		t.Threshold = *raw.Threshold
	case raw.Min != nil:
		t.Threshold = *raw.Min
	}
	switch {
	case raw.UnitPrice != nil:
		t.UnitPrice = *raw.UnitPrice
	case raw.Price != nil:
		t.UnitPrice = *raw.Price
	}
	return nil
}

// ParseTiers decodes a quantity_pricing column. Null/empty input yields no tiers.
func ParseTiers(b []byte) ([]Tier, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var out []Tier
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
