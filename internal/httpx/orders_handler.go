package httpx

import (
	"context"
	"crypto/subtle"
	"fmt"
	"github.com/ariefcatur/go-storefront-orders.git/internal/cart"
	"github.com/ariefcatur/go-storefront-orders.git/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders.git/internal/events"
	"github.com/ariefcatur/go-storefront-orders.git/internal/orders"
	"github.com/ariefcatur/go-storefront-orders.git/internal/redisx"
	"github.com/ariefcatur/go-storefront-orders.git/internal/selection"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"net/http"
	"strings"
	"time"
)

// OrderStore is the read/update side of orders; *orders.Repo satisfies it.
type OrderStore interface {
	GetByNumber(ctx context.Context, number int64) (orders.TrackedOrder, error)
	orders.StatusStore
}

type StatusEvents interface {
	OrderStatusChanged(ctx context.Context, pl events.OrderStatusChangedPayload) error
}

type OrdersHandler struct {
	Composer   *orders.Composer
	Products   catalog.Reader
	Carts      cart.Backend
	Notifier   cart.Notifier // optional
	Orders     OrderStore
	Events     StatusEvents  // optional
	Redis      redis.Cmdable // optional; tracking cache
	AdminToken string
	MaxQty     int
	Log        *zap.Logger
}

type checkoutReq struct {
	Customer orders.Customer `json:"customer"`
	Notes    string          `json:"notes"`
}

type orderNowReq struct {
	Rows     []selection.Row `json:"rows"`
	Customer orders.Customer `json:"customer"`
	Notes    string          `json:"notes"`
}

type quoteReq struct {
	Rows []selection.Row `json:"rows"`
}

type statusReq struct {
	Status orders.Status `json:"status"`
}

type trackingView struct {
	orders.TrackedOrder
	GrandTotal decimal.Decimal `json:"grand_total"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/products/{id}/quote", h.quote)
	r.Post("/products/{id}/orders", h.orderNow)
	r.Post("/checkout", h.checkout)
	r.Get("/orders/{number}", h.track)
	r.With(h.requireAdmin).Patch("/orders/{number}/status", h.updateStatus)
}

func (h *OrdersHandler) maxQty() int {
	if h.MaxQty > 0 {
		return h.MaxQty
	}
	return selection.DefaultMaxQty
}

func (h *OrdersHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if h.AdminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.AdminToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// quote prices the rows the shopper has picked so far; incomplete rows are
// fine here.
func (h *OrdersHandler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteReq
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	set, err := selection.FromRows(p.Variants(), h.maxQty(), req.Rows)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, set.QuoteProduct(p))
}

func (h *OrdersHandler) orderNow(w http.ResponseWriter, r *http.Request) {
	var req orderNowReq
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p, err := h.Products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	set, err := selection.FromRows(p.Variants(), h.maxQty(), req.Rows)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	rc, err := h.Composer.OrderNow(ctx, p, set, req.Customer, req.Notes)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rc)
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if !decodeJSON(w, r, &req) {
		return
	}
	s, ok := loadCart(w, r, h.Carts, h.Notifier, h.Log)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rc, err := h.Composer.Checkout(ctx, s, req.Customer, req.Notes)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rc)
}

func (h *OrdersHandler) track(w http.ResponseWriter, r *http.Request) {
	number, err := orders.ParseOrderNumber(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrderStatus, number)
	var o orders.TrackedOrder
	if h.Redis != nil {
		if ok, err := redisx.GetJSON(ctx, h.Redis, key, &o); err == nil && ok {
			writeJSON(w, http.StatusOK, trackingView{TrackedOrder: o, GrandTotal: o.GrandTotal()})
			return
		}
	}

	// 2) fallback DB
	o, err = h.Orders.GetByNumber(ctx, number)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if h.Redis != nil {
		if err := redisx.SetJSON(ctx, h.Redis, key, o, redisx.TTLStatusCache); err != nil {
			h.Log.Warn("tracking cache write", zap.String("key", key), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, trackingView{TrackedOrder: o, GrandTotal: o.GrandTotal()})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	number, err := orders.ParseOrderNumber(chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var req statusReq
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	from, err := orders.ChangeStatus(ctx, h.Orders, number, req.Status)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if h.Redis != nil {
		if err := h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, number)).Err(); err != nil {
			h.Log.Warn("tracking cache invalidate", zap.Int64("order_number", number), zap.Error(err))
		}
	}
	if h.Events != nil {
		err := h.Events.OrderStatusChanged(ctx, events.OrderStatusChangedPayload{
			OrderNumber: number,
			From:        string(from),
			To:          string(req.Status),
			ChangedAt:   time.Now().UTC(),
		})
		if err != nil {
			h.Log.Debug("status event not published", zap.Int64("order_number", number), zap.Error(err))
		}
	}
	h.Log.Info("order status changed", zap.Int64("order_number", number),
		zap.String("from", string(from)), zap.String("to", string(req.Status)))
	writeJSON(w, http.StatusOK, map[string]any{"order_number": number, "from": from, "status": req.Status})
}
