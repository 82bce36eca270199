package orders

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-storefront-orders.git/internal/cart"
	"github.com/ariefcatur/go-storefront-orders.git/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders.git/internal/events"
	"github.com/ariefcatur/go-storefront-orders.git/internal/pricing"
	"github.com/ariefcatur/go-storefront-orders.git/internal/selection"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"reflect"
	"strings"
)

type Customer struct {
	Name          string `json:"name" validate:"required,max=200"`
	Phone         string `json:"phone" validate:"required,max=32"`
	Address       string `json:"address" validate:"required"`
	GovernorateID string `json:"governorate_id" validate:"required"`
}

func (c Customer) trimmed() Customer {
	return Customer{
		Name:          strings.TrimSpace(c.Name),
		Phone:         strings.TrimSpace(c.Phone),
		Address:       strings.TrimSpace(c.Address),
		GovernorateID: strings.TrimSpace(c.GovernorateID),
	}
}

type Line struct {
	ProductID string
	Name      string
	Color     string
	Size      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Snapshot is the human-readable label stored with the order item.
func (l Line) Snapshot() string {
	var parts []string
	for _, s := range []string{l.Color, l.Size} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return l.Name
	}
	return l.Name + " (" + strings.Join(parts, " / ") + ")"
}

func (l Line) Total() decimal.Decimal { return pricing.LineTotal(l.UnitPrice, l.Quantity) }

// Draft is a fully priced order that has not been written yet.
type Draft struct {
	Lines         []Line
	Customer      Customer
	Governorate   catalog.Governorate
	Notes         string
	ProductsTotal decimal.Decimal
	ShippingCost  decimal.Decimal
	GrandTotal    decimal.Decimal
}

type Receipt struct {
	OrderID       string          `json:"order_id"`
	OrderNumber   int64           `json:"order_number"`
	ProductsTotal decimal.Decimal `json:"products_total"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// Writer persists the three parts of an order, one call each, in order.
type Writer interface {
	InsertCustomer(ctx context.Context, c CustomerRecord) (string, error)
	InsertOrder(ctx context.Context, o OrderRecord) (OrderRef, error)
	InsertOrderItems(ctx context.Context, items []ItemRecord) error
}

type GovernorateSource interface {
	ListGovernorates(ctx context.Context) ([]catalog.Governorate, error)
}

type EventSink interface {
	OrderPlaced(ctx context.Context, pl events.OrderPlacedPayload) error
}

type Composer struct {
	Writer       Writer
	Governorates GovernorateSource
	Events       EventSink // optional
	Log          *zap.Logger

	validate *validator.Validate
}

func NewComposer(w Writer, govs GovernorateSource, ev EventSink, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Composer{Writer: w, Governorates: govs, Events: ev, Log: log, validate: v}
}

func (c *Composer) checkCustomer(cust Customer) error {
	err := c.validate.Struct(cust)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &ValidationError{Field: fe.Field(), Reason: reason}
	}
	return err
}

// ComposeFromCart turns cart lines into a draft, each line at the unit
// price stored on it.
func (c *Composer) ComposeFromCart(ctx context.Context, items []cart.LineItem, cust Customer, notes string) (Draft, error) {
	if len(items) == 0 {
		return Draft{}, &ValidationError{Field: "items", Reason: "empty"}
	}
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			return Draft{}, &ValidationError{Field: "quantity", Reason: "min=1"}
		}
		lines = append(lines, Line{
			ProductID: it.ProductID,
			Name:      it.Name,
			Color:     it.Color,
			Size:      it.Size,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return c.compose(ctx, lines, cust, notes)
}

// ComposeFromSelection prices every row of the set at one unit price
// resolved on the combined quantity.
func (c *Composer) ComposeFromSelection(ctx context.Context, p catalog.Product, set *selection.Set, cust Customer, notes string) (Draft, error) {
	if set == nil || set.Len() == 0 {
		return Draft{}, &ValidationError{Field: "rows", Reason: "empty"}
	}
	if !set.IsComplete() {
		return Draft{}, &ValidationError{Field: "rows", Reason: "incomplete"}
	}
	q := set.QuoteProduct(p)
	rows := set.Rows()
	lines := make([]Line, 0, len(rows))
	for _, r := range rows {
		if r.Quantity < 1 {
			return Draft{}, &ValidationError{Field: "quantity", Reason: "min=1"}
		}
		lines = append(lines, Line{
			ProductID: p.ID,
			Name:      p.Name,
			Color:     r.Color,
			Size:      r.Size,
			Quantity:  r.Quantity,
			UnitPrice: q.UnitPrice,
		})
	}
	return c.compose(ctx, lines, cust, notes)
}

func (c *Composer) compose(ctx context.Context, lines []Line, cust Customer, notes string) (Draft, error) {
	cust = cust.trimmed()
	if err := c.checkCustomer(cust); err != nil {
		return Draft{}, err
	}
	govs, err := c.Governorates.ListGovernorates(ctx)
	if err != nil {
		return Draft{}, fmt.Errorf("load governorates: %w", err)
	}
	gov, ok := catalog.FindGovernorate(govs, cust.GovernorateID)
	if !ok {
		// data tidak konsisten; ongkir dianggap 0
		c.Log.Warn("unknown governorate, shipping set to 0", zap.String("governorate_id", cust.GovernorateID))
		gov = catalog.Governorate{ID: cust.GovernorateID, ShippingCost: decimal.Zero}
	}

	products := decimal.Zero
	for _, l := range lines {
		products = products.Add(l.Total())
	}
	return Draft{
		Lines:         lines,
		Customer:      cust,
		Governorate:   gov,
		Notes:         strings.TrimSpace(notes),
		ProductsTotal: products,
		ShippingCost:  gov.ShippingCost,
		GrandTotal:    products.Add(gov.ShippingCost),
	}, nil
}

// Submit writes customer, order and items in that order. A failure stops
// the sequence; rows already written stay.
func (c *Composer) Submit(ctx context.Context, d Draft) (Receipt, error) {
	customerID, err := c.Writer.InsertCustomer(ctx, CustomerRecord{
		Name:        d.Customer.Name,
		Phone:       d.Customer.Phone,
		Address:     d.Customer.Address,
		Governorate: d.Governorate.Name,
	})
	if err != nil {
		return Receipt{}, c.writeFailed(StepCustomer, err)
	}

	ref, err := c.Writer.InsertOrder(ctx, OrderRecord{
		CustomerID:    customerID,
		TotalAmount:   d.ProductsTotal,
		ShippingCost:  d.ShippingCost,
		GovernorateID: d.Customer.GovernorateID,
		Notes:         d.Notes,
		Status:        StatusPending,
	})
	if err != nil {
		return Receipt{}, c.writeFailed(StepOrder, err, zap.String("customer_id", customerID))
	}

	items := make([]ItemRecord, 0, len(d.Lines))
	for _, l := range d.Lines {
		items = append(items, ItemRecord{
			OrderID:        ref.ID,
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			Color:          l.Color,
			Size:           l.Size,
			ProductDetails: l.Snapshot(),
		})
	}
	if err := c.Writer.InsertOrderItems(ctx, items); err != nil {
		return Receipt{}, c.writeFailed(StepItems, err, zap.String("order_id", ref.ID), zap.Int64("order_number", ref.Number))
	}

	c.Log.Info("order placed",
		zap.Int64("order_number", ref.Number),
		zap.Int("items", len(items)),
		zap.String("products_total", d.ProductsTotal.String()),
		zap.String("shipping_cost", d.ShippingCost.String()))
	c.publishPlaced(ctx, customerID, ref, d)

	return Receipt{
		OrderID:       ref.ID,
		OrderNumber:   ref.Number,
		ProductsTotal: d.ProductsTotal,
		ShippingCost:  d.ShippingCost,
		GrandTotal:    d.GrandTotal,
	}, nil
}

func (c *Composer) writeFailed(step Step, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("step", string(step)), zap.Error(err))
	c.Log.Error("order write failed", fields...)
	return &WriteError{Step: step, Err: err}
}

func (c *Composer) publishPlaced(ctx context.Context, customerID string, ref OrderRef, d Draft) {
	if c.Events == nil {
		return
	}
	items := make([]events.OrderItem, 0, len(d.Lines))
	for _, l := range d.Lines {
		items = append(items, events.OrderItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Color:     l.Color,
			Size:      l.Size,
		})
	}
	err := c.Events.OrderPlaced(ctx, events.OrderPlacedPayload{
		OrderID:      ref.ID,
		OrderNumber:  ref.Number,
		CustomerID:   customerID,
		Items:        items,
		TotalAmount:  d.ProductsTotal,
		ShippingCost: d.ShippingCost,
		Status:       string(StatusPending),
	})
	if err != nil {
		c.Log.Debug("order event not published", zap.Int64("order_number", ref.Number), zap.Error(err))
	}
}

// Checkout submits the whole cart. The ordered lines leave the cart only
// after every write succeeded; anything added meanwhile is kept.
func (c *Composer) Checkout(ctx context.Context, store *cart.Store, cust Customer, notes string) (Receipt, error) {
	items := store.Items()
	d, err := c.ComposeFromCart(ctx, items, cust, notes)
	if err != nil {
		return Receipt{}, err
	}
	r, err := c.Submit(ctx, d)
	if err != nil {
		return Receipt{}, err
	}
	if err := store.RemoveOrdered(ctx, items); err != nil {
		// order sudah masuk; cukup dicatat
		c.Log.Warn("cart not cleared after checkout", zap.Int64("order_number", r.OrderNumber), zap.Error(err))
	}
	return r, nil
}

// OrderNow places an order for a single product straight from a selection.
func (c *Composer) OrderNow(ctx context.Context, p catalog.Product, set *selection.Set, cust Customer, notes string) (Receipt, error) {
	d, err := c.ComposeFromSelection(ctx, p, set, cust, notes)
	if err != nil {
		return Receipt{}, err
	}
	return c.Submit(ctx, d)
}
