package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arvind-dev/backend-bazaar/internal/db"
)

// ErrNotFound indicates the requested cart line could not be located.
var ErrNotFound = errors.New("cart item not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Querier captures the database methods the cart service needs.
type Querier interface {
	EnsureCart(ctx context.Context, userID uuid.UUID) (db.Cart, error)
	ListActiveCartItems(ctx context.Context, cartID uuid.UUID) ([]db.CartItem, error)
	FindCartItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (db.CartItem, error)
	GetCartItem(ctx context.Context, id, cartID uuid.UUID) (db.CartItem, error)
	InsertCartItem(ctx context.Context, it db.CartItem) (uuid.UUID, error)
	UpdateCartItemQty(ctx context.Context, id uuid.UUID, qty int32) error
	SoftDeleteCartItem(ctx context.Context, id, cartID uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (db.Product, error)
}

// Service encapsulates cart operations. Prices are snapshotted onto the line
// when a product is first added; later price changes do not move the cart.
type Service struct {
	Q Querier
}

// Snapshot loads the user's cart and its live lines, creating the cart when
// absent.
func (s *Service) Snapshot(ctx context.Context, userID uuid.UUID) (db.Cart, []db.CartItem, error) {
	if s == nil || s.Q == nil {
		return db.Cart{}, nil, errors.New("cart service not configured")
	}
	c, err := s.Q.EnsureCart(ctx, userID)
	if err != nil {
		return db.Cart{}, nil, err
	}
	items, err := s.Q.ListActiveCartItems(ctx, c.ID)
	if err != nil {
		return db.Cart{}, nil, err
	}
	return c, items, nil
}

// AddItem inserts a new line or bumps the quantity on an existing one.
func (s *Service) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int32) (db.CartItem, error) {
	if s == nil || s.Q == nil {
		return db.CartItem{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return db.CartItem{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	c, err := s.Q.EnsureCart(ctx, userID)
	if err != nil {
		return db.CartItem{}, err
	}
	existing, err := s.Q.FindCartItemByProduct(ctx, c.ID, productID)
	if err == nil {
		existing.Qty += qty
		if err := s.Q.UpdateCartItemQty(ctx, existing.ID, existing.Qty); err != nil {
			return db.CartItem{}, err
		}
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return db.CartItem{}, err
	}
	product, err := s.Q.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.CartItem{}, fmt.Errorf("product not found: %w", ErrInvalidInput)
		}
		return db.CartItem{}, err
	}
	if product.Deleted {
		return db.CartItem{}, fmt.Errorf("product unavailable: %w", ErrInvalidInput)
	}
	line := db.CartItem{
		CartID:    c.ID,
		ProductID: product.ID,
		StoreID:   product.StoreID,
		Title:     product.Title,
		Qty:       qty,
		UnitPrice: product.Price,
		MRP:       product.MRP,
	}
	id, err := s.Q.InsertCartItem(ctx, line)
	if err != nil {
		return db.CartItem{}, err
	}
	line.ID = id
	return line, nil
}

// UpdateQty changes the quantity on an existing line.
func (s *Service) UpdateQty(ctx context.Context, userID, itemID uuid.UUID, qty int32) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	if qty <= 0 {
		return fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	c, err := s.Q.EnsureCart(ctx, userID)
	if err != nil {
		return err
	}
	item, err := s.Q.GetCartItem(ctx, itemID, c.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return s.Q.UpdateCartItemQty(ctx, item.ID, qty)
}

// RemoveItem soft-deletes a line from the user's cart.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if s == nil || s.Q == nil {
		return errors.New("cart service not configured")
	}
	c, err := s.Q.EnsureCart(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.Q.GetCartItem(ctx, itemID, c.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return s.Q.SoftDeleteCartItem(ctx, itemID, c.ID)
}
