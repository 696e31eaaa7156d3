package db

import (
	"context"

	"github.com/google/uuid"
)

const offerColumns = `id, store_id, label, kind, percent_bps, flat_amount, min_order_value, product_ids, deleted, created_at`

func scanOffer(row interface{ Scan(dest ...any) error }) (StoreOffer, error) {
	var o StoreOffer
	err := row.Scan(&o.ID, &o.StoreID, &o.Label, &o.Kind, &o.PercentBps, &o.FlatAmount,
		&o.MinOrderValue, &o.ProductIDs, &o.Deleted, &o.CreatedAt)
	return o, err
}

// ListActiveOffersByStore returns non-deleted offers in the order the seller saved them.
func (q *Queries) ListActiveOffersByStore(ctx context.Context, storeID uuid.UUID) ([]StoreOffer, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+offerColumns+` FROM store_offers WHERE store_id = $1 AND NOT deleted ORDER BY created_at`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StoreOffer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// InsertStoreOffer creates a promotion for a store.
func (q *Queries) InsertStoreOffer(ctx context.Context, o StoreOffer) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `
		INSERT INTO store_offers (store_id, label, kind, percent_bps, flat_amount, min_order_value, product_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		o.StoreID, o.Label, o.Kind, o.PercentBps, o.FlatAmount, o.MinOrderValue, o.ProductIDs).
		Scan(&id)
	return id, err
}

// SoftDeleteStoreOffer hides an offer from the pricing engine without losing history.
func (q *Queries) SoftDeleteStoreOffer(ctx context.Context, id, storeID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE store_offers SET deleted = TRUE WHERE id = $1 AND store_id = $2`, id, storeID)
	return err
}

// GetStore loads a storefront row.
func (q *Queries) GetStore(ctx context.Context, id uuid.UUID) (Store, error) {
	var s Store
	err := q.db.QueryRow(ctx, `SELECT id, retailer_id, name, platform_fee FROM stores WHERE id = $1`, id).
		Scan(&s.ID, &s.RetailerID, &s.Name, &s.PlatformFee)
	return s, err
}

// ListExtraCharges returns the flat/percent charges configured on the given
// owners (products and/or stores).
func (q *Queries) ListExtraCharges(ctx context.Context, ownerIDs []uuid.UUID) ([]ExtraCharge, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, owner_type, owner_id, label, kind, amount, percent_bps
		FROM extra_charges WHERE owner_id = ANY($1)`, ownerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExtraCharge
	for rows.Next() {
		var c ExtraCharge
		if err := rows.Scan(&c.ID, &c.OwnerType, &c.OwnerID, &c.Label, &c.Kind, &c.Amount, &c.PercentBps); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
