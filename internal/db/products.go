package db

import (
	"context"

	"github.com/google/uuid"
)

const productColumns = `id, store_id, title, price, mrp, stock, low_stock_threshold, deleted`

func scanProduct(row interface{ Scan(dest ...any) error }) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.StoreID, &p.Title, &p.Price, &p.MRP, &p.Stock, &p.LowStockThreshold, &p.Deleted)
	return p, err
}

// GetProduct loads a single non-deleted product.
func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 AND NOT deleted`, id)
	return scanProduct(row)
}

// ListProductsByIDs resolves the current price/stock snapshot for cart lines.
func (q *Queries) ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1) AND NOT deleted`, ids)
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
	return out, rows.Err()
}

// ListProductsByStore returns a store's live products.
func (q *Queries) ListProductsByStore(ctx context.Context, storeID uuid.UUID, limit, offset int32) ([]Product, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE store_id = $1 AND NOT deleted ORDER BY title LIMIT $2 OFFSET $3`,
		storeID, limit, offset)
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
	return out, rows.Err()
}

// ClearProductStock switches a product to untracked inventory.
func (q *Queries) ClearProductStock(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE products SET stock = NULL WHERE id = $1`, id)
	return err
}

// ReserveStockRow reports the post-reservation stock level.
type ReserveStockRow struct {
	Stock             int32
	LowStockThreshold int32
	StoreID           uuid.UUID
}

// ReserveStock decrements tracked stock in a single conditional statement.
// pgx.ErrNoRows means the remaining stock was insufficient; two concurrent
// checkouts can never both pass the guard. Untracked (NULL) stock is never
// decremented and callers must skip it.
func (q *Queries) ReserveStock(ctx context.Context, id uuid.UUID, qty int32) (ReserveStockRow, error) {
	var r ReserveStockRow
	err := q.db.QueryRow(ctx, `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1 AND stock IS NOT NULL AND stock >= $2
		RETURNING stock, low_stock_threshold, store_id`, id, qty).
		Scan(&r.Stock, &r.LowStockThreshold, &r.StoreID)
	return r, err
}

// ReleaseStock returns previously reserved units, e.g. when a sibling step of
// the commit fails after reservation or an order is cancelled.
func (q *Queries) ReleaseStock(ctx context.Context, id uuid.UUID, qty int32) error {
	_, err := q.db.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id = $1 AND stock IS NOT NULL`, id, qty)
	return err
}

// SetProductStock overwrites the tracked stock level (retailer stock management).
func (q *Queries) SetProductStock(ctx context.Context, id uuid.UUID, stock int32) error {
	_, err := q.db.Exec(ctx, `UPDATE products SET stock = $2 WHERE id = $1`, id, stock)
	return err
}
