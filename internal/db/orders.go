package db

import (
	"context"

	"github.com/google/uuid"
)

const orderColumns = `id, user_id, store_id, status, payment_status, address_snapshot, coupon_code,
	item_total, discount_amount, coupon_discount, shipping_fee, platform_fee, extra_charges,
	donation_amount, grand_total, idempotency_key, created_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.StoreID, &o.Status, &o.PaymentStatus, &o.AddressSnapshot,
		&o.CouponCode, &o.ItemTotal, &o.DiscountAmount, &o.CouponDiscount, &o.ShippingFee,
		&o.PlatformFee, &o.ExtraCharges, &o.DonationAmount, &o.GrandTotal, &o.IdempotencyKey, &o.CreatedAt)
	return o, err
}

// InsertOrder freezes one store's bill into an order row.
func (q *Queries) InsertOrder(ctx context.Context, o Order) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (user_id, store_id, status, payment_status, address_snapshot, coupon_code,
			item_total, discount_amount, coupon_discount, shipping_fee, platform_fee, extra_charges,
			donation_amount, grand_total, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+orderColumns,
		o.UserID, o.StoreID, o.Status, o.PaymentStatus, o.AddressSnapshot, o.CouponCode,
		o.ItemTotal, o.DiscountAmount, o.CouponDiscount, o.ShippingFee, o.PlatformFee,
		o.ExtraCharges, o.DonationAmount, o.GrandTotal, o.IdempotencyKey)
	return scanOrder(row)
}

// InsertOrderItem copies a cart line into the order with its offer outcome.
func (q *Queries) InsertOrderItem(ctx context.Context, it OrderItem) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO order_items (order_id, product_id, title, qty, free_qty, unit_price, mrp, discount, applied_offers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		it.OrderID, it.ProductID, it.Title, it.Qty, it.FreeQty, it.UnitPrice, it.MRP, it.Discount, it.AppliedOffers)
	return err
}

// ListOrdersForUser returns the user's orders newest first.
func (q *Queries) ListOrdersForUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Order, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountOrdersForUser supports list pagination.
func (q *Queries) CountOrdersForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// GetOrderForUser loads one order scoped to its owner.
func (q *Queries) GetOrderForUser(ctx context.Context, id, userID uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
	return scanOrder(row)
}

// GetOrder loads one order without an ownership guard (admin surface).
func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// ListOrderItems returns an order's committed lines.
func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, product_id, title, qty, free_qty, unit_price, mrp, discount, applied_offers
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Qty, &it.FreeQty,
			&it.UnitPrice, &it.MRP, &it.Discount, &it.AppliedOffers); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpdateOrderStatus persists a lifecycle transition.
func (q *Queries) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := q.db.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	return err
}

// ListOrdersByIdempotencyKey finds orders already committed under the caller's
// token so a retried checkout returns the original result instead of writing
// twice.
func (q *Queries) ListOrdersByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) ([]Order, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND idempotency_key = $2 ORDER BY created_at`,
		userID, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
