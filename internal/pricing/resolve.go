package pricing

import (
	"cmp"
	"github.com/shopspring/decimal"
	"slices"
)

// ResolvePrice returns the unit price for totalQty units.
//
// Tiers may come in any order. They are stable-sorted by threshold descending
// and the first tier with Threshold <= totalQty wins; among equal thresholds
// the one supplied first wins. Malformed tiers (threshold below 1, zero or
// missing price) are skipped. No qualifying tier, no tiers at all, or a
// non-positive quantity all fall back to base.
func ResolvePrice(base decimal.Decimal, tiers []Tier, totalQty int) decimal.Decimal {
	if len(tiers) == 0 || totalQty <= 0 {
		return base
	}
	sorted := slices.Clone(tiers)
	slices.SortStableFunc(sorted, func(a, b Tier) int { return cmp.Compare(b.Threshold, a.Threshold) })
	for _, t := range sorted {
		if !t.Valid() {
			continue
		}
		if t.Threshold <= totalQty {
			return t.UnitPrice
		}
	}
	return base
}

type PriceFields struct {
	Price         decimal.Decimal
	DiscountPrice decimal.NullDecimal
	IsOffer       bool
	OfferPrice    decimal.NullDecimal
}

// DisplayPrice: offer price (only when IsOffer) > discount price > base price.
// Zero or missing prices never win.
func DisplayPrice(p PriceFields) decimal.Decimal {
	if p.IsOffer && p.OfferPrice.Valid && p.OfferPrice.Decimal.IsPositive() {
		return p.OfferPrice.Decimal
	}
	if p.DiscountPrice.Valid && p.DiscountPrice.Decimal.IsPositive() {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

// DiscountPercent is the rounded percentage badge shown when display < base.
func DiscountPercent(base, display decimal.Decimal) int {
	if !base.IsPositive() || display.GreaterThanOrEqual(base) {
		return 0
	}
	pct := base.Sub(display).Div(base).Mul(decimal.NewFromInt(100)).Round(0)
	return int(pct.IntPart())
}

// LineTotal = unit * qty.
func LineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}
