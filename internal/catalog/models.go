package catalog

import (
	"cmp"
	"github.com/ariefcatur/go-storefront-orders.git/internal/pricing"
	"github.com/shopspring/decimal"
	"slices"
	"time"
)

const (
	DefaultLowStockThreshold = 5
	PlaceholderImage         = "/placeholder.svg"
)

type Image struct {
	URL          string `json:"image_url"`
	DisplayOrder int    `json:"display_order"`
}

type ColorVariant struct {
	Color string   `json:"color"`
	Sizes []string `json:"sizes"`
}

type Product struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	NameAr            string              `json:"name_ar,omitempty"`
	Description       string              `json:"description,omitempty"`
	CategoryID        string              `json:"category_id,omitempty"`
	Price             decimal.Decimal     `json:"price"`
	DiscountPrice     decimal.NullDecimal `json:"discount_price"`
	IsOffer           bool                `json:"is_offer"`
	OfferPrice        decimal.NullDecimal `json:"offer_price"`
	Stock             *int                `json:"stock"`
	LowStockThreshold *int                `json:"low_stock_threshold"`
	QuantityPricing   []pricing.Tier      `json:"quantity_pricing,omitempty"`
	ColorVariants     []ColorVariant      `json:"color_variants,omitempty"`
	ColorOptions      []string            `json:"color_options,omitempty"`
	SizeOptions       []string            `json:"size_options,omitempty"`
	ImageURL          string              `json:"image_url,omitempty"`
	Images            []Image             `json:"images,omitempty"`
	IsFeatured        bool                `json:"is_featured"`
	Rating            float64             `json:"rating,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

type Governorate struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
}

func (p Product) priceFields() pricing.PriceFields {
	return pricing.PriceFields{
		Price:         p.Price,
		DiscountPrice: p.DiscountPrice,
		IsOffer:       p.IsOffer,
		OfferPrice:    p.OfferPrice,
	}
}

// DisplayPrice is the single-unit price before quantity tiers.
func (p Product) DisplayPrice() decimal.Decimal { return pricing.DisplayPrice(p.priceFields()) }

func (p Product) DiscountPercent() int {
	return pricing.DiscountPercent(p.Price, p.DisplayPrice())
}

// LowStock reports the "only N left" warning.
func (p Product) LowStock() bool {
	if p.Stock == nil {
		return false
	}
	threshold := DefaultLowStockThreshold
	if p.LowStockThreshold != nil && *p.LowStockThreshold > 0 {
		threshold = *p.LowStockThreshold
	}
	return *p.Stock > 0 && *p.Stock <= threshold
}

// SortImages orders images by display order, stable for equal orders.
func (p *Product) SortImages() {
	slices.SortStableFunc(p.Images, func(a, b Image) int { return cmp.Compare(a.DisplayOrder, b.DisplayOrder) })
}

func (p Product) PrimaryImage() string {
	if len(p.Images) > 0 {
		return p.Images[0].URL
	}
	if p.ImageURL != "" {
		return p.ImageURL
	}
	return PlaceholderImage
}

func FindGovernorate(govs []Governorate, id string) (Governorate, bool) {
	for _, g := range govs {
		if g.ID == id {
			return g, true
		}
	}
	return Governorate{}, false
}
