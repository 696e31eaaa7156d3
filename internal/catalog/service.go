package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arvind-dev/backend-bazaar/internal/db"
)

// ErrNotFound indicates the product does not exist or is deleted.
var ErrNotFound = errors.New("product not found")

// ProductView is the read-model served to shoppers.
type ProductView struct {
	ID      uuid.UUID `json:"id"`
	StoreID uuid.UUID `json:"storeId"`
	Title   string    `json:"title"`
	Price   int64     `json:"price"`
	MRP     int64     `json:"mrp"`
	InStock bool      `json:"inStock"`
	Stock   *int32    `json:"stock,omitempty"` // nil when inventory is untracked
}

// Querier captures the database methods the catalog needs.
type Querier interface {
	GetProduct(ctx context.Context, id uuid.UUID) (db.Product, error)
	ListProductsByStore(ctx context.Context, storeID uuid.UUID, limit, offset int32) ([]db.Product, error)
	SetProductStock(ctx context.Context, id uuid.UUID, stock int32) error
	ClearProductStock(ctx context.Context, id uuid.UUID) error
}

// Service reads products through a cache and lets retailers manage stock.
type Service struct {
	Q     Querier
	Cache *Cache
}

func toView(p db.Product) ProductView {
	v := ProductView{
		ID:      p.ID,
		StoreID: p.StoreID,
		Title:   p.Title,
		Price:   p.Price,
		MRP:     p.MRP,
		InStock: true,
	}
	if p.Stock.Valid {
		stock := p.Stock.Int32
		v.Stock = &stock
		v.InStock = stock > 0
	}
	return v
}

func productKey(id uuid.UUID) string {
	return "catalog:product:" + id.String()
}

// GetProduct returns a single product, cache-first.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (ProductView, error) {
	if s == nil || s.Q == nil {
		return ProductView{}, errors.New("catalog service not configured")
	}
	var cached ProductView
	if hit, err := s.Cache.GetJSON(ctx, productKey(id), &cached); err == nil && hit {
		return cached, nil
	}
	p, err := s.Q.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductView{}, ErrNotFound
		}
		return ProductView{}, err
	}
	view := toView(p)
	_ = s.Cache.SetJSON(ctx, productKey(id), view)
	return view, nil
}

// ListByStore returns a store's products.
func (s *Service) ListByStore(ctx context.Context, storeID uuid.UUID, limit, offset int32) ([]ProductView, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("catalog service not configured")
	}
	rows, err := s.Q.ListProductsByStore(ctx, storeID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]ProductView, 0, len(rows))
	for _, p := range rows {
		out = append(out, toView(p))
	}
	return out, nil
}

// SetStock overwrites the tracked stock level. A nil stock switches the
// product to untracked inventory.
func (s *Service) SetStock(ctx context.Context, id uuid.UUID, stock *int32) error {
	if s == nil || s.Q == nil {
		return errors.New("catalog service not configured")
	}
	if _, err := s.Q.GetProduct(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	var err error
	if stock == nil {
		err = s.Q.ClearProductStock(ctx, id)
	} else {
		if *stock < 0 {
			return errors.New("stock must not be negative")
		}
		err = s.Q.SetProductStock(ctx, id, *stock)
	}
	if err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, productKey(id))
	return nil
}
