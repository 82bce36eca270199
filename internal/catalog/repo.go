package catalog

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-storefront-orders.git/internal/pricing"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"strings"
)

const (
	PageSize        = 20
	FeaturedLimit   = 10
	RelatedLimit    = 6
	SearchLimit     = 30
	MinSearchLength = 2
)

var (
	ErrNotFound    = errors.New("not found")
	ErrShortQuery  = errors.New("search query too short")
	ErrInvalidPage = errors.New("invalid page")
)

// Reader is what the rest of the service needs from the catalog.
type Reader interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	ListGovernorates(ctx context.Context) ([]Governorate, error)
}

type Repo struct{ DB *pgxpool.Pool }

const productCols = `p.id::text, p.name, COALESCE(p.name_ar,''), COALESCE(p.description,''),
	COALESCE(p.category_id::text,''), p.price, p.discount_price, COALESCE(p.is_offer,false),
	p.offer_price, p.stock, p.low_stock_threshold, p.quantity_pricing,
	COALESCE(p.color_options,'{}'), COALESCE(p.size_options,'{}'), COALESCE(p.image_url,''),
	COALESCE(p.is_featured,false), COALESCE(p.rating,0)::float8, p.created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p     Product
		tiers []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.NameAr, &p.Description, &p.CategoryID,
		&p.Price, &p.DiscountPrice, &p.IsOffer, &p.OfferPrice, &p.Stock, &p.LowStockThreshold,
		&tiers, &p.ColorOptions, &p.SizeOptions, &p.ImageURL, &p.IsFeatured, &p.Rating, &p.CreatedAt)
	if err != nil {
		return Product{}, err
	}
	if p.QuantityPricing, err = pricing.ParseTiers(tiers); err != nil {
		// tier rusak tidak boleh bikin produk hilang; harga dasar tetap berlaku
		p.QuantityPricing = nil
	}
	return p, nil
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products p WHERE p.id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Product{}, err
	}
	ps := []Product{p}
	if err := r.attach(ctx, ps); err != nil {
		return Product{}, err
	}
	return ps[0], nil
}

// ListProducts returns one page (0-based) of products, newest first.
func (r *Repo) ListProducts(ctx context.Context, page int) ([]Product, error) {
	if page < 0 {
		return nil, ErrInvalidPage
	}
	return r.query(ctx, `SELECT `+productCols+` FROM products p
		ORDER BY p.created_at DESC LIMIT $1 OFFSET $2`, PageSize, page*PageSize)
}

func (r *Repo) ListFeatured(ctx context.Context) ([]Product, error) {
	return r.query(ctx, `SELECT `+productCols+` FROM products p
		WHERE p.is_featured = true ORDER BY p.created_at DESC LIMIT $1`, FeaturedLimit)
}

func (r *Repo) ListRelated(ctx context.Context, categoryID, excludeID string) ([]Product, error) {
	if categoryID == "" {
		return nil, nil
	}
	return r.query(ctx, `SELECT `+productCols+` FROM products p
		WHERE p.category_id::text = $1 AND p.id::text <> $2 LIMIT $3`, categoryID, excludeID, RelatedLimit)
}

// Search matches name or Arabic name case-insensitively.
func (r *Repo) Search(ctx context.Context, q string) ([]Product, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < MinSearchLength {
		return nil, ErrShortQuery
	}
	pattern := "%" + escapeLike(q) + "%"
	return r.query(ctx, `SELECT `+productCols+` FROM products p
		WHERE p.name ILIKE $1 OR p.name_ar ILIKE $1 LIMIT $2`, pattern, SearchLimit)
}

func (r *Repo) ListGovernorates(ctx context.Context) ([]Governorate, error) {
	rows, err := r.DB.Query(ctx, `SELECT id::text, name, COALESCE(shipping_cost,0) FROM governorates ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Governorate
	for rows.Next() {
		var g Governorate
		if err := rows.Scan(&g.ID, &g.Name, &g.ShippingCost); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repo) query(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attach(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attach loads images and color variants for all products in two queries.
func (r *Repo) attach(ctx context.Context, ps []Product) error {
	if len(ps) == 0 {
		return nil
	}
	ids := make([]string, 0, len(ps))
	idx := make(map[string]int, len(ps))
	for i, p := range ps {
		ids = append(ids, p.ID)
		idx[p.ID] = i
	}

	rows, err := r.DB.Query(ctx, `SELECT product_id::text, image_url, COALESCE(display_order,0)
		FROM product_images WHERE product_id::text = ANY($1)`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			pid string
			im  Image
		)
		if err := rows.Scan(&pid, &im.URL, &im.DisplayOrder); err != nil {
			rows.Close()
			return err
		}
		ps[idx[pid]].Images = append(ps[idx[pid]].Images, im)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.DB.Query(ctx, `SELECT product_id::text, color, sizes
		FROM product_color_variants WHERE product_id::text = ANY($1) ORDER BY created_at`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pid string
			cv  ColorVariant
		)
		if err := rows.Scan(&pid, &cv.Color, &cv.Sizes); err != nil {
			return err
		}
		ps[idx[pid]].ColorVariants = append(ps[idx[pid]].ColorVariants, cv)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range ps {
		ps[i].SortImages()
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
