package catalog

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/arvind-dev/backend-bazaar/internal/db"
)

type stubQuerier struct {
	products map[uuid.UUID]db.Product
	getCalls int
}

func (s *stubQuerier) GetProduct(_ context.Context, id uuid.UUID) (db.Product, error) {
	s.getCalls++
	p, ok := s.products[id]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (s *stubQuerier) ListProductsByStore(_ context.Context, storeID uuid.UUID, _, _ int32) ([]db.Product, error) {
	var out []db.Product
	for _, p := range s.products {
		if p.StoreID == storeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubQuerier) SetProductStock(_ context.Context, id uuid.UUID, stock int32) error {
	p := s.products[id]
	p.Stock = pgtype.Int4{Int32: stock, Valid: true}
	s.products[id] = p
	return nil
}

func (s *stubQuerier) ClearProductStock(_ context.Context, id uuid.UUID) error {
	p := s.products[id]
	p.Stock = pgtype.Int4{}
	s.products[id] = p
	return nil
}

func newCatalog(t *testing.T) (*Service, *stubQuerier) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q := &stubQuerier{products: map[uuid.UUID]db.Product{}}
	return &Service{Q: q, Cache: NewCache(client, time.Minute)}, q
}

func TestGetProductCachesView(t *testing.T) {
	svc, q := newCatalog(t)
	id := uuid.New()
	q.products[id] = db.Product{
		ID:      id,
		StoreID: uuid.New(),
		Title:   "Organic Honey 500g",
		Price:   42900,
		MRP:     49900,
		Stock:   pgtype.Int4{Int32: 3, Valid: true},
	}

	ctx := context.Background()
	first, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)
	require.True(t, first.InStock)
	require.NotNil(t, first.Stock)
	require.EqualValues(t, 3, *first.Stock)

	second, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, q.getCalls, "second read should come from cache")
}

func TestGetProductNotFound(t *testing.T) {
	svc, _ := newCatalog(t)
	_, err := svc.GetProduct(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUntrackedStockIsAlwaysInStock(t *testing.T) {
	svc, q := newCatalog(t)
	id := uuid.New()
	q.products[id] = db.Product{ID: id, StoreID: uuid.New(), Title: "USB-C Cable 1m", Price: 29900}

	view, err := svc.GetProduct(context.Background(), id)
	require.NoError(t, err)
	require.True(t, view.InStock)
	require.Nil(t, view.Stock)
}

func TestSetStockInvalidatesCache(t *testing.T) {
	svc, q := newCatalog(t)
	id := uuid.New()
	q.products[id] = db.Product{ID: id, StoreID: uuid.New(), Title: "Power Bank", Price: 99900, Stock: pgtype.Int4{Int32: 5, Valid: true}}

	ctx := context.Background()
	_, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)

	stock := int32(0)
	require.NoError(t, svc.SetStock(ctx, id, &stock))

	view, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)
	require.False(t, view.InStock)

	// nil switches to untracked
	require.NoError(t, svc.SetStock(ctx, id, nil))
	view, err = svc.GetProduct(ctx, id)
	require.NoError(t, err)
	require.True(t, view.InStock)
	require.Nil(t, view.Stock)
}

func TestSetStockRejectsNegative(t *testing.T) {
	svc, q := newCatalog(t)
	id := uuid.New()
	q.products[id] = db.Product{ID: id, StoreID: uuid.New(), Title: "Toor Dal 1kg", Price: 15900}

	bad := int32(-1)
	require.Error(t, svc.SetStock(context.Background(), id, &bad))
}
