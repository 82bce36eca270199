package orders

import (
	"context"
	"errors"
	"fmt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"strconv"
	"strings"
)

var (
	ErrNotFound       = errors.New("order not found")
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// Repo writes orders straight to Postgres. The three inserts are separate
// statements on purpose: there is no surrounding transaction.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) InsertCustomer(ctx context.Context, c CustomerRecord) (string, error) {
	var id string
	err := r.DB.QueryRow(ctx, `
		INSERT INTO customers(name, phone, address, governorate)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text`, c.Name, c.Phone, c.Address, c.Governorate).Scan(&id)
	return id, err
}

func (r *Repo) InsertOrder(ctx context.Context, o OrderRecord) (OrderRef, error) {
	var ref OrderRef
	err := r.DB.QueryRow(ctx, `
		INSERT INTO orders(customer_id, total_amount, shipping_cost, governorate_id, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, order_number`,
		o.CustomerID, o.TotalAmount, o.ShippingCost, o.GovernorateID, nullIfEmpty(o.Notes), string(o.Status),
	).Scan(&ref.ID, &ref.Number)
	return ref, err
}

// InsertOrderItems writes all rows in one statement, so the items land
// all-or-nothing.
func (r *Repo) InsertOrderItems(ctx context.Context, items []ItemRecord) error {
	if len(items) == 0 {
		return nil
	}
	const cols = 7
	var sb strings.Builder
	args := make([]any, 0, len(items)*cols)
	for i, it := range items {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(")
		for j := 1; j <= cols; j++ {
			if j > 1 {
				sb.WriteString(",")
			}
			sb.WriteString("$" + strconv.Itoa(i*cols+j))
		}
		sb.WriteString(")")
		args = append(args, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice,
			nullIfEmpty(it.Color), nullIfEmpty(it.Size), it.ProductDetails)
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO order_items(order_id, product_id, quantity, price, color, size, product_details)
		VALUES `+sb.String(), args...)
	return err
}

func (r *Repo) GetByNumber(ctx context.Context, number int64) (TrackedOrder, error) {
	var (
		o      TrackedOrder
		status string
		id     string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT o.id::text, o.order_number, o.status, o.total_amount, COALESCE(o.shipping_cost,0),
		       COALESCE(o.notes,''), COALESCE(c.name,''), COALESCE(g.name,''), o.created_at
		FROM orders o
		LEFT JOIN customers c ON c.id = o.customer_id
		LEFT JOIN governorates g ON g.id = o.governorate_id
		WHERE o.order_number = $1`, number,
	).Scan(&id, &o.Number, &status, &o.TotalAmount, &o.ShippingCost,
		&o.Notes, &o.Customer, &o.Governorate, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return TrackedOrder{}, ErrNotFound
	}
	if err != nil {
		return TrackedOrder{}, err
	}
	o.Status = Status(status)
	if status == "" {
		o.Status = StatusPending
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id::text, quantity, price, COALESCE(color,''), COALESCE(size,''), COALESCE(product_details,'')
		FROM order_items WHERE order_id::text = $1`, id)
	if err != nil {
		return TrackedOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it TrackedItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPrice, &it.Color, &it.Size, &it.ProductDetails); err != nil {
			return TrackedOrder{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (r *Repo) GetOrderStatus(ctx context.Context, number int64) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT COALESCE(status,'pending') FROM orders WHERE order_number=$1`, number).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return Status(s), nil
}

// UpdateStatus moves an order from -> to. It fails with ErrStatusConflict if
// the stored status is no longer from.
func (r *Repo) UpdateStatus(ctx context.Context, number int64, from, to Status) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$3
		WHERE order_number=$1 AND COALESCE(status,'pending')=$2`, number, string(from), string(to))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return ErrStatusConflict
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
