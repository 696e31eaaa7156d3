package db

import (
	"context"

	"github.com/google/uuid"
)

// EnsureCart loads the user's cart, creating it when absent.
func (q *Queries) EnsureCart(ctx context.Context, userID uuid.UUID) (Cart, error) {
	var c Cart
	err := q.db.QueryRow(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
		RETURNING id, user_id, updated_at`, userID).
		Scan(&c.ID, &c.UserID, &c.UpdatedAt)
	return c, err
}

// GetCartByUser loads the user's cart.
func (q *Queries) GetCartByUser(ctx context.Context, userID uuid.UUID) (Cart, error) {
	var c Cart
	err := q.db.QueryRow(ctx, `SELECT id, user_id, updated_at FROM carts WHERE user_id = $1`, userID).
		Scan(&c.ID, &c.UserID, &c.UpdatedAt)
	return c, err
}

const cartItemColumns = `id, cart_id, product_id, store_id, title, qty, unit_price, mrp, deleted`

func scanCartItem(row interface{ Scan(dest ...any) error }) (CartItem, error) {
	var it CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.StoreID, &it.Title, &it.Qty, &it.UnitPrice, &it.MRP, &it.Deleted)
	return it, err
}

// ListActiveCartItems returns the cart's live lines.
func (q *Queries) ListActiveCartItems(ctx context.Context, cartID uuid.UUID) ([]CartItem, error) {
	rows, err := q.db.Query(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = $1 AND NOT deleted ORDER BY id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CartItem
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// FindCartItemByProduct locates a live line for the product.
func (q *Queries) FindCartItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (CartItem, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = $1 AND product_id = $2 AND NOT deleted`, cartID, productID)
	return scanCartItem(row)
}

// GetCartItem loads a live line scoped to its cart.
func (q *Queries) GetCartItem(ctx context.Context, id, cartID uuid.UUID) (CartItem, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE id = $1 AND cart_id = $2 AND NOT deleted`, id, cartID)
	return scanCartItem(row)
}

// InsertCartItem appends a line with the price snapshot taken at add time.
func (q *Queries) InsertCartItem(ctx context.Context, it CartItem) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, product_id, store_id, title, qty, unit_price, mrp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		it.CartID, it.ProductID, it.StoreID, it.Title, it.Qty, it.UnitPrice, it.MRP).
		Scan(&id)
	return id, err
}

// UpdateCartItemQty changes the quantity on a live line.
func (q *Queries) UpdateCartItemQty(ctx context.Context, id uuid.UUID, qty int32) error {
	_, err := q.db.Exec(ctx, `UPDATE cart_items SET qty = $2 WHERE id = $1 AND NOT deleted`, id, qty)
	return err
}

// SoftDeleteCartItem removes a single line from the shopper's view.
func (q *Queries) SoftDeleteCartItem(ctx context.Context, id, cartID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE cart_items SET deleted = TRUE WHERE id = $1 AND cart_id = $2`, id, cartID)
	return err
}

// SoftDeleteCartItems marks the consumed lines after a successful commit.
func (q *Queries) SoftDeleteCartItems(ctx context.Context, ids []uuid.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE cart_items SET deleted = TRUE WHERE id = ANY($1)`, ids)
	return err
}
