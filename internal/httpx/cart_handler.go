package httpx

import (
	"context"
	"github.com/ariefcatur/go-storefront-orders.git/internal/cart"
	"github.com/ariefcatur/go-storefront-orders.git/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders.git/internal/pricing"
	"github.com/ariefcatur/go-storefront-orders.git/internal/selection"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"net/http"
	"strings"
	"time"
)

// HeaderCartSession names the shopper's cart. The client picks it once and
// sends it on every cart call.
const HeaderCartSession = "X-Cart-Session"

type CartHandler struct {
	Carts    cart.Backend
	Products catalog.Reader
	Notifier cart.Notifier // optional
	MaxQty   int
	Log      *zap.Logger
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type selectionReq struct {
	ProductID string          `json:"product_id"`
	Rows      []selection.Row `json:"rows"`
}

type quantityReq struct {
	Quantity int `json:"quantity"`
}

type cartView struct {
	Items      []cart.LineItem `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Delete("/", h.clear)
		r.Post("/items", h.addItem)
		r.Post("/selection", h.addSelection)
		r.Patch("/items/{id}", h.updateQuantity)
		r.Delete("/items/{id}", h.removeItem)
	})
}

func (h *CartHandler) maxQty() int {
	if h.MaxQty > 0 {
		return h.MaxQty
	}
	return selection.DefaultMaxQty
}

func (h *CartHandler) store(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	return loadCart(w, r, h.Carts, h.Notifier, h.Log)
}

// loadCart loads the session cart or writes the error response itself.
func loadCart(w http.ResponseWriter, r *http.Request, b cart.Backend, n cart.Notifier, log *zap.Logger) (*cart.Store, bool) {
	session := strings.TrimSpace(r.Header.Get(HeaderCartSession))
	if session == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing " + HeaderCartSession})
		return nil, false
	}
	s, err := cart.Load(r.Context(), b.Storage(session), n, log)
	if err != nil {
		writeError(w, log, err)
		return nil, false
	}
	return s, true
}

func writeCart(w http.ResponseWriter, code int, s *cart.Store) {
	items := s.Items()
	if items == nil {
		items = []cart.LineItem{}
	}
	writeJSON(w, code, cartView{Items: items, TotalItems: s.TotalItems(), TotalPrice: s.TotalPrice()})
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	writeCart(w, http.StatusOK, s)
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID == "" || req.Quantity < 1 {
		writeError(w, h.Log, cart.ErrInvalidItem)
		return
	}
	if req.Quantity > h.maxQty() {
		writeError(w, h.Log, selection.ErrQuantityCap)
		return
	}
	s, ok := h.store(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Products.GetProduct(ctx, req.ProductID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	row := selection.Row{Color: req.Color, Size: req.Size, Quantity: req.Quantity}
	if _, err := selection.FromRows(p.Variants(), h.maxQty(), []selection.Row{row}); err != nil {
		writeError(w, h.Log, err)
		return
	}
	unit := pricing.ResolvePrice(p.DisplayPrice(), p.QuantityPricing, req.Quantity)
	c := cart.Candidate{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: unit,
		Image:     p.PrimaryImage(),
		Color:     req.Color,
		Size:      req.Size,
		Quantity:  req.Quantity,
	}
	if unit.LessThan(p.Price) {
		c.OriginalPrice = decimal.NewNullDecimal(p.Price)
	}
	if _, err := s.AddItem(ctx, c); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeCart(w, http.StatusOK, s)
}

func (h *CartHandler) addSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionReq
	if !decodeJSON(w, r, &req) {
		return
	}
	s, ok := h.store(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Products.GetProduct(ctx, req.ProductID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	set, err := selection.FromRows(p.Variants(), h.maxQty(), req.Rows)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if _, err := s.AddSelection(ctx, p, set); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeCart(w, http.StatusOK, s)
}

func (h *CartHandler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityReq
	if !decodeJSON(w, r, &req) {
		return
	}
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := s.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), req.Quantity); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeCart(w, http.StatusOK, s)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := s.RemoveItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeCart(w, http.StatusOK, s)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := s.Clear(r.Context()); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeCart(w, http.StatusOK, s)
}
