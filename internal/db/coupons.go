package db

import (
	"context"

	"github.com/google/uuid"
)

const couponColumns = `id, code, kind, value, percent_bps, max_discount, min_order_value,
	usage_limit, usage_count, valid_from, valid_until, eligibility, single_use, store_id, deleted`

func scanCoupon(row interface{ Scan(dest ...any) error }) (Coupon, error) {
	var c Coupon
	err := row.Scan(&c.ID, &c.Code, &c.Kind, &c.Value, &c.PercentBps, &c.MaxDiscount,
		&c.MinOrderValue, &c.UsageLimit, &c.UsageCount, &c.ValidFrom, &c.ValidUntil,
		&c.Eligibility, &c.SingleUse, &c.StoreID, &c.Deleted)
	return c, err
}

// GetCouponByCode resolves a coupon case-insensitively, excluding soft-deleted rows.
func (q *Queries) GetCouponByCode(ctx context.Context, code string) (Coupon, error) {
	row := q.db.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE lower(code) = lower($1) AND NOT deleted`, code)
	return scanCoupon(row)
}

// InsertCoupon creates a coupon (admin surface).
func (q *Queries) InsertCoupon(ctx context.Context, c Coupon) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `
		INSERT INTO coupons (code, kind, value, percent_bps, max_discount, min_order_value,
			usage_limit, valid_from, valid_until, eligibility, single_use, store_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		c.Code, c.Kind, c.Value, c.PercentBps, c.MaxDiscount, c.MinOrderValue,
		c.UsageLimit, c.ValidFrom, c.ValidUntil, c.Eligibility, c.SingleUse, c.StoreID).
		Scan(&id)
	return id, err
}

// HasRedemptionByUser reports whether the user has ever redeemed the coupon.
func (q *Queries) HasRedemptionByUser(ctx context.Context, couponID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM coupon_redemptions WHERE coupon_id = $1 AND user_id = $2)`,
		couponID, userID).Scan(&exists)
	return exists, err
}

// InsertRedemption appends a redemption row tying coupon, user and order.
func (q *Queries) InsertRedemption(ctx context.Context, r CouponRedemption) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO coupon_redemptions (coupon_id, user_id, order_id, amount)
		VALUES ($1, $2, $3, $4)`,
		r.CouponID, r.UserID, r.OrderID, r.Amount)
	return err
}

// IncrementCouponUsage bumps usage_count guarded by the usage limit in the
// same statement. A zero affected-row count means the limit was reached by a
// concurrent redemption.
func (q *Queries) IncrementCouponUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE coupons
		SET usage_count = usage_count + 1
		WHERE id = $1 AND (usage_limit = 0 OR usage_count < usage_limit)`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountOrdersByUser supports new/existing user coupon eligibility.
func (q *Queries) CountOrdersByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}
