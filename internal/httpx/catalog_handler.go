package httpx

import (
	"context"
	"github.com/ariefcatur/go-storefront-orders.git/internal/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"net/http"
	"strconv"
	"time"
)

// Browser is the listing side of the catalog; *catalog.Repo satisfies it.
type Browser interface {
	ListProducts(ctx context.Context, page int) ([]catalog.Product, error)
	ListFeatured(ctx context.Context) ([]catalog.Product, error)
	ListRelated(ctx context.Context, categoryID, excludeID string) ([]catalog.Product, error)
	Search(ctx context.Context, q string) ([]catalog.Product, error)
}

type CatalogHandler struct {
	Browse   Browser
	Products catalog.Reader // single product + governorates, usually cached
	Log      *zap.Logger
}

type productView struct {
	catalog.Product
	DisplayPrice    decimal.Decimal `json:"display_price"`
	DiscountPercent int             `json:"discount_percent"`
	LowStock        bool            `json:"low_stock"`
	PrimaryImage    string          `json:"primary_image"`
	Colors          []string        `json:"colors"`
}

func viewOf(p catalog.Product) productView {
	return productView{
		Product:         p,
		DisplayPrice:    p.DisplayPrice(),
		DiscountPercent: p.DiscountPercent(),
		LowStock:        p.LowStock(),
		PrimaryImage:    p.PrimaryImage(),
		Colors:          p.Variants().Colors(),
	}
}

func viewsOf(ps []catalog.Product) []productView {
	out := make([]productView, 0, len(ps))
	for _, p := range ps {
		out = append(out, viewOf(p))
	}
	return out
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/featured", h.listFeatured)
	r.Get("/products/search", h.search)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/products/{id}/related", h.listRelated)
	r.Get("/governorates", h.listGovernorates)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	page := 0
	if s := r.URL.Query().Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, h.Log, catalog.ErrInvalidPage)
			return
		}
		page = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Browse.ListProducts(ctx, page)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":     page,
		"products": viewsOf(ps),
		"has_more": len(ps) == catalog.PageSize,
	})
}

func (h *CatalogHandler) listFeatured(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Browse.ListFeatured(ctx)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, viewsOf(ps))
}

func (h *CatalogHandler) search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Browse.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, viewsOf(ps))
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(p))
}

func (h *CatalogHandler) listRelated(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Products.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ps, err := h.Browse.ListRelated(ctx, p.CategoryID, p.ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, viewsOf(ps))
}

func (h *CatalogHandler) listGovernorates(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	govs, err := h.Products.ListGovernorates(ctx)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if govs == nil {
		govs = []catalog.Governorate{}
	}
	writeJSON(w, http.StatusOK, govs)
}
