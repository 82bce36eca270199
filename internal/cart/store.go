package cart

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ariefcatur/go-storefront-orders.git/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders.git/internal/pricing"
	"github.com/ariefcatur/go-storefront-orders.git/internal/selection"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"slices"
	"sync"
)

// Namespace is the fixed storage key of the persisted cart.
const Namespace = "family-trend-cart"

var (
	ErrInvalidItem         = errors.New("invalid cart item")
	ErrIncompleteSelection = errors.New("select color and size for every row")
)

type LineItem struct {
	ID            string              `json:"id"`
	ProductID     string              `json:"product_id"`
	Name          string              `json:"name"`
	UnitPrice     decimal.Decimal     `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"original_price"`
	Image         string              `json:"image"`
	Color         string              `json:"color,omitempty"`
	Size          string              `json:"size,omitempty"`
	Quantity      int                 `json:"quantity"`
}

// Candidate is a line item that has not been given an id yet.
type Candidate struct {
	ProductID     string
	Name          string
	UnitPrice     decimal.Decimal
	OriginalPrice decimal.NullDecimal
	Image         string
	Color         string
	Size          string
	Quantity      int
}

func (c Candidate) sameLine(li LineItem) bool {
	return li.ProductID == c.ProductID && li.Color == c.Color && li.Size == c.Size
}

// Notifier is told about additions. Failures are ignored.
type Notifier interface {
	ItemAdded(ctx context.Context, item LineItem) error
}

// Store is the cart of one session. Every mutation is a read-modify-write of
// the whole persisted collection and becomes visible only once stored.
type Store struct {
	mu       sync.Mutex
	storage  Storage
	notifier Notifier
	log      *zap.Logger
	items    []LineItem
}

// Load reads the persisted cart. Corrupt data resets to an empty cart;
// only a storage read failure is returned.
func Load(ctx context.Context, storage Storage, notifier Notifier, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{storage: storage, notifier: notifier, log: log}

	raw, found, err := storage.Get(ctx, Namespace)
	if err != nil {
		return nil, err
	}
	s.items = s.decode(raw, found)
	return s, nil
}

func (s *Store) decode(raw string, found bool) []LineItem {
	if !found || raw == "" {
		return nil
	}
	var items []LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.Warn("cart state unreadable, starting empty", zap.Error(err))
		return nil
	}
	return items
}

func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// AddItem merges into the line with the same product, color and size, or
// appends a new line.
func (s *Store) AddItem(ctx context.Context, c Candidate) (LineItem, error) {
	added, err := s.addAll(ctx, []Candidate{c})
	if err != nil {
		return LineItem{}, err
	}
	return added[0], nil
}

// AddSelection pushes every row of a complete selection at the selection's
// effective unit price.
func (s *Store) AddSelection(ctx context.Context, p catalog.Product, set *selection.Set) ([]LineItem, error) {
	if !set.IsComplete() {
		return nil, ErrIncompleteSelection
	}
	q := set.QuoteProduct(p)
	rows := set.Rows()
	cs := make([]Candidate, 0, len(rows))
	for _, r := range rows {
		cs = append(cs, Candidate{
			ProductID:     p.ID,
			Name:          p.Name,
			UnitPrice:     q.UnitPrice,
			OriginalPrice: q.OriginalPrice,
			Image:         p.PrimaryImage(),
			Color:         r.Color,
			Size:          r.Size,
			Quantity:      r.Quantity,
		})
	}
	return s.addAll(ctx, cs)
}

func (s *Store) addAll(ctx context.Context, cs []Candidate) ([]LineItem, error) {
	for _, c := range cs {
		if c.ProductID == "" || c.Quantity < 1 {
			return nil, ErrInvalidItem
		}
	}

	var touched []LineItem
	s.mu.Lock()
	err := s.mutate(ctx, func(next []LineItem) []LineItem {
		touched = make([]LineItem, 0, len(cs))
		for _, c := range cs {
			i := slices.IndexFunc(next, c.sameLine)
			if i >= 0 {
				next[i].Quantity += c.Quantity
				touched = append(touched, next[i])
				continue
			}
			li := LineItem{
				ID:            uuid.NewString(),
				ProductID:     c.ProductID,
				Name:          c.Name,
				UnitPrice:     c.UnitPrice,
				OriginalPrice: c.OriginalPrice,
				Image:         c.Image,
				Color:         c.Color,
				Size:          c.Size,
				Quantity:      c.Quantity,
			}
			next = append(next, li)
			touched = append(touched, li)
		}
		return next
	})
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, li := range touched {
		s.notify(ctx, li)
	}
	return touched, nil
}

func (s *Store) RemoveItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, func(next []LineItem) []LineItem {
		return slices.DeleteFunc(next, func(li LineItem) bool { return li.ID == id })
	})
}

// UpdateQuantity sets the quantity; zero or less removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return s.RemoveItem(ctx, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, func(next []LineItem) []LineItem {
		if i := slices.IndexFunc(next, func(li LineItem) bool { return li.ID == id }); i >= 0 {
			next[i].Quantity = qty
		}
		return next
	})
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, func([]LineItem) []LineItem { return nil })
}

// RemoveOrdered takes the ordered lines out of the cart after a checkout.
// Only the ordered quantity of each line is removed: a line added, or a
// quantity raised, by another request after the order was composed stays.
func (s *Store) RemoveOrdered(ctx context.Context, ordered []LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, func(next []LineItem) []LineItem {
		for _, o := range ordered {
			i := slices.IndexFunc(next, func(li LineItem) bool { return li.ID == o.ID })
			if i < 0 {
				continue
			}
			next[i].Quantity -= o.Quantity
			if next[i].Quantity <= 0 {
				next = slices.Delete(next, i, i+1)
			}
		}
		return next
	})
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, li := range s.items {
		n += li.Quantity
	}
	return n
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, li := range s.items {
		total = total.Add(pricing.LineTotal(li.UnitPrice, li.Quantity))
	}
	return total
}

// mutate applies fn to the items currently persisted for the session, not
// the copy read by Load, then swaps the result in. Caller holds mu.
func (s *Store) mutate(ctx context.Context, fn func([]LineItem) []LineItem) error {
	var next []LineItem
	err := s.storage.Update(ctx, Namespace, func(raw string, found bool) (string, error) {
		next = fn(s.decode(raw, found))
		if next == nil {
			next = []LineItem{}
		}
		b, err := json.Marshal(next)
		return string(b), err
	})
	if err != nil {
		return err
	}
	s.items = next
	return nil
}

func (s *Store) notify(ctx context.Context, li LineItem) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ItemAdded(ctx, li); err != nil {
		s.log.Debug("cart notify failed", zap.String("item_id", li.ID), zap.Error(err))
	}
}
