package selection

import (
	"errors"
	"github.com/ariefcatur/go-storefront-orders.git/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders.git/internal/pricing"
	"github.com/shopspring/decimal"
	"slices"
)

// DefaultMaxQty bounds the combined quantity of a single order.
const DefaultMaxQty = 12

var (
	ErrQuantityCap     = errors.New("combined quantity exceeds the maximum per order")
	ErrLastRow         = errors.New("cannot remove the only row")
	ErrRowIndex        = errors.New("row index out of range")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrUnknownVariant  = errors.New("color or size not offered for this product")
)

type Row struct {
	Color    string `json:"color"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// Patch: nil fields are left untouched.
type Patch struct {
	Color    *string `json:"color,omitempty"`
	Size     *string `json:"size,omitempty"`
	Quantity *int    `json:"quantity,omitempty"`
}

// Set holds the color/size/quantity rows picked for one product. It always
// has at least one row.
type Set struct {
	variants catalog.Variants
	maxQty   int
	rows     []Row
}

func New(v catalog.Variants, maxQty int) *Set {
	if maxQty <= 0 {
		maxQty = DefaultMaxQty
	}
	if v == nil {
		v = catalog.Flat{}
	}
	return &Set{variants: v, maxQty: maxQty, rows: []Row{emptyRow()}}
}

// FromRows rebuilds a set from rows submitted by a client. Quantity rules
// apply and every color or size given must be one the product offers; blank
// picks are allowed and completeness is checked separately with IsComplete.
func FromRows(v catalog.Variants, maxQty int, rows []Row) (*Set, error) {
	s := New(v, maxQty)
	if len(rows) == 0 {
		return s, nil
	}
	s.rows = s.rows[:0]
	total := 0
	for _, r := range rows {
		if r.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		if !s.offered(r.Color, r.Size) {
			return nil, ErrUnknownVariant
		}
		total += r.Quantity
		s.rows = append(s.rows, r)
	}
	if total > s.maxQty {
		return nil, ErrQuantityCap
	}
	return s, nil
}

func emptyRow() Row { return Row{Quantity: 1} }

// offered: blank means not picked yet.
func (s *Set) offered(color, size string) bool {
	if color != "" && !slices.Contains(s.variants.Colors(), color) {
		return false
	}
	return size == "" || slices.Contains(s.variants.Sizes(color), size)
}

func (s *Set) MaxQty() int { return s.maxQty }

func (s *Set) Rows() []Row { return slices.Clone(s.rows) }

func (s *Set) Len() int { return len(s.rows) }

func (s *Set) AddRow() error {
	if s.TotalQuantity()+1 > s.maxQty {
		return ErrQuantityCap
	}
	s.rows = append(s.rows, emptyRow())
	return nil
}

func (s *Set) UpdateRow(i int, p Patch) error {
	if i < 0 || i >= len(s.rows) {
		return ErrRowIndex
	}
	row := s.rows[i]
	if p.Quantity != nil {
		if *p.Quantity < 1 {
			return ErrInvalidQuantity
		}
		if s.TotalQuantity()-row.Quantity+*p.Quantity > s.maxQty {
			return ErrQuantityCap
		}
		row.Quantity = *p.Quantity
	}
	if p.Color != nil && *p.Color != row.Color {
		row.Color = *p.Color
		// sizes are scoped per color
		row.Size = ""
	}
	if p.Size != nil {
		row.Size = *p.Size
	}
	if !s.offered(row.Color, row.Size) {
		return ErrUnknownVariant
	}
	s.rows[i] = row
	return nil
}

func (s *Set) RemoveRow(i int) error {
	if i < 0 || i >= len(s.rows) {
		return ErrRowIndex
	}
	if len(s.rows) == 1 {
		return ErrLastRow
	}
	s.rows = slices.Delete(s.rows, i, i+1)
	return nil
}

func (s *Set) TotalQuantity() int {
	total := 0
	for _, r := range s.rows {
		total += r.Quantity
	}
	return total
}

func (s *Set) Colors() []string { return s.variants.Colors() }

func (s *Set) AvailableSizes(color string) []string { return s.variants.Sizes(color) }

// IsComplete: every row names a color when the product has colors, and a
// size whenever sizes exist for that row's color.
func (s *Set) IsComplete() bool {
	hasColors := len(s.variants.Colors()) > 0
	for _, r := range s.rows {
		if hasColors && r.Color == "" {
			return false
		}
		if len(s.variants.Sizes(r.Color)) > 0 && r.Size == "" {
			return false
		}
	}
	return true
}

type Quote struct {
	TotalQuantity int                 `json:"total_quantity"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	Total         decimal.Decimal     `json:"total"`
	OriginalPrice decimal.NullDecimal `json:"original_price"`
	Complete      bool                `json:"complete"`
}

// Quote prices the whole set: one unit price resolved on the combined
// quantity, applied to every row. OriginalPrice is set when that price is
// below regular.
func (s *Set) Quote(base, regular decimal.Decimal, tiers []pricing.Tier) Quote {
	qty := s.TotalQuantity()
	unit := pricing.ResolvePrice(base, tiers, qty)
	q := Quote{
		TotalQuantity: qty,
		UnitPrice:     unit,
		Total:         pricing.LineTotal(unit, qty),
		Complete:      s.IsComplete(),
	}
	if unit.LessThan(regular) {
		q.OriginalPrice = decimal.NewNullDecimal(regular)
	}
	return q
}

// QuoteProduct is Quote using the product's display price and tiers.
func (s *Set) QuoteProduct(p catalog.Product) Quote {
	return s.Quote(p.DisplayPrice(), p.Price, p.QuantityPricing)
}
