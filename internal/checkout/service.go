package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arvind-dev/backend-bazaar/internal/charge"
	"github.com/arvind-dev/backend-bazaar/internal/coupon"
	"github.com/arvind-dev/backend-bazaar/internal/db"
	"github.com/arvind-dev/backend-bazaar/internal/events"
	"github.com/arvind-dev/backend-bazaar/internal/obs"
	"github.com/arvind-dev/backend-bazaar/internal/offer"
	"github.com/arvind-dev/backend-bazaar/internal/pricing"
	"github.com/arvind-dev/backend-bazaar/internal/resilience"
	"github.com/arvind-dev/backend-bazaar/internal/shipping"
)

var (
	// ErrEmptyCart is returned when there is nothing to quote or commit.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNegativeDonation is returned when the request carries a donation
	// below zero.
	ErrNegativeDonation = errors.New("donation must not be negative")
)

// StockError reports a line the store could not fulfil.
type StockError struct {
	ProductID uuid.UUID `json:"productId"`
	Title     string    `json:"title"`
	Requested int32     `json:"requested"`
	Available int32     `json:"available"`
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: only %d available", e.Title, e.Available)
}

// Querier captures every database operation the checkout pipeline touches.
// db.Queries satisfies it both pool-backed and transaction-scoped.
type Querier interface {
	coupon.Querier
	EnsureCart(ctx context.Context, userID uuid.UUID) (db.Cart, error)
	ListActiveCartItems(ctx context.Context, cartID uuid.UUID) ([]db.CartItem, error)
	SoftDeleteCartItems(ctx context.Context, ids []uuid.UUID) error
	ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]db.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (db.Product, error)
	ListActiveOffersByStore(ctx context.Context, storeID uuid.UUID) ([]db.StoreOffer, error)
	GetStore(ctx context.Context, id uuid.UUID) (db.Store, error)
	ListExtraCharges(ctx context.Context, ownerIDs []uuid.UUID) ([]db.ExtraCharge, error)
	InsertOrder(ctx context.Context, o db.Order) (db.Order, error)
	InsertOrderItem(ctx context.Context, it db.OrderItem) error
	ReserveStock(ctx context.Context, id uuid.UUID, qty int32) (db.ReserveStockRow, error)
	ListOrdersByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) ([]db.Order, error)
}

// Store is a Querier that can also scope work to a transaction.
type Store interface {
	Querier
	InTx(ctx context.Context, fn func(Querier) error) error
}

// PGStore backs the checkout pipeline with pgx.
type PGStore struct {
	*db.Queries
	Pool *pgxpool.Pool
}

// InTx runs fn inside a database transaction.
func (s PGStore) InTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(s.Queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Addr is the delivery address frozen onto each order.
type Addr struct {
	ReceiverName string `json:"receiverName"`
	Phone        string `json:"phone"`
	Line1        string `json:"line1"`
	Line2        string `json:"line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
}

// QuoteInput shapes a read-only bill computation.
type QuoteInput struct {
	CouponCode string        `json:"couponCode,omitempty"`
	Donation   pricing.Money `json:"donation,omitempty"`
}

// Input shapes an order commit.
type Input struct {
	QuoteInput
	Address        Addr   `json:"address"`
	IdempotencyKey string `json:"-"`
}

// LineQuote is one priced cart line in the bill.
type LineQuote struct {
	ItemID        uuid.UUID     `json:"itemId"`
	ProductID     uuid.UUID     `json:"productId"`
	Title         string        `json:"title"`
	Qty           int32         `json:"qty"`
	FreeQty       int32         `json:"freeQty,omitempty"`
	UnitPrice     pricing.Money `json:"unitPrice"`
	MRP           pricing.Money `json:"mrp"`
	Subtotal      pricing.Money `json:"subtotal"`
	Discount      pricing.Money `json:"discount"`
	AppliedOffers []string      `json:"appliedOffers,omitempty"`
}

// StoreQuote is one store's slice of the bill.
type StoreQuote struct {
	Summary     pricing.StoreSummary `json:"summary"`
	Lines       []LineQuote          `json:"lines"`
	Fees        []charge.Entry       `json:"fees,omitempty"`
	StockIssues []StockError         `json:"stockIssues,omitempty"`
}

// Quote is the full multi-store bill.
type Quote struct {
	Stores     []StoreQuote    `json:"stores"`
	Summary    pricing.Summary `json:"summary"`
	CouponCode string          `json:"couponCode,omitempty"`
}

// StoreResult reports the commit outcome for one store.
type StoreResult struct {
	StoreID    uuid.UUID     `json:"storeId"`
	OrderID    uuid.UUID     `json:"orderId,omitempty"`
	Status     string        `json:"status"` // "created" or "failed"
	GrandTotal pricing.Money `json:"grandTotal,omitempty"`
	Error      string        `json:"error,omitempty"`
	Details    any           `json:"details,omitempty"`
}

// Output is the commit result across all stores in the cart.
type Output struct {
	Orders   []StoreResult `json:"orders"`
	Replayed bool          `json:"replayed,omitempty"`
}

// Service turns a cart into a bill (Quote) and a bill into per-store orders
// (Commit).
type Service struct {
	Store         Store
	Charges       charge.Calculator
	Shipping      shipping.FeeRule
	Events        *events.Bus
	RetryAttempts int
	RetryBase     time.Duration
	Now           func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) attempts() int {
	if s == nil || s.RetryAttempts <= 0 {
		return 3
	}
	return s.RetryAttempts
}

func (s *Service) retryBase() time.Duration {
	if s == nil || s.RetryBase <= 0 {
		return 50 * time.Millisecond
	}
	return s.RetryBase
}

// storePlan is the commit-side view of one store's slice of the cart.
type storePlan struct {
	input pricing.StoreInput
	quote StoreQuote
	items []db.CartItem
	lines []offer.LineResult
}

type plan struct {
	stores []storePlan
	coupon *coupon.Result
}

// Quote computes the bill without touching any state.
func (s *Service) Quote(ctx context.Context, userID uuid.UUID, in QuoteInput) (Quote, error) {
	if s == nil || s.Store == nil {
		return Quote{}, errors.New("checkout service not configured")
	}
	p, err := s.buildPlan(ctx, s.Store, userID, in)
	if err != nil {
		return Quote{}, err
	}
	return p.render(in.CouponCode), nil
}

func (p *plan) render(couponCode string) Quote {
	out := Quote{}
	summaries := make([]pricing.StoreSummary, 0, len(p.stores))
	for _, sp := range p.stores {
		out.Stores = append(out.Stores, sp.quote)
		summaries = append(summaries, sp.quote.Summary)
	}
	out.Summary = pricing.Combine(summaries)
	if p.coupon != nil {
		out.CouponCode = p.coupon.Rule.Code
	}
	return out
}

// buildPlan loads the cart, groups it by store and prices every component.
func (s *Service) buildPlan(ctx context.Context, q Querier, userID uuid.UUID, in QuoteInput) (*plan, error) {
	if in.Donation < 0 {
		return nil, ErrNegativeDonation
	}
	c, err := q.EnsureCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := q.ListActiveCartItems(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	// group lines by store, preserving the order they entered the cart
	var storeOrder []uuid.UUID
	byStore := map[uuid.UUID][]db.CartItem{}
	productIDs := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if _, seen := byStore[it.StoreID]; !seen {
			storeOrder = append(storeOrder, it.StoreID)
		}
		byStore[it.StoreID] = append(byStore[it.StoreID], it)
		productIDs = append(productIDs, it.ProductID)
	}
	productRows, err := q.ListProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	products := make(map[uuid.UUID]db.Product, len(productRows))
	for _, pr := range productRows {
		products[pr.ID] = pr
	}

	p := &plan{}
	netByStore := map[uuid.UUID]pricing.Money{}
	for _, storeID := range storeOrder {
		sp, err := s.buildStorePlan(ctx, q, storeID, byStore[storeID], products)
		if err != nil {
			return nil, err
		}
		netByStore[storeID] = sp.input.Subtotal - sp.input.OfferDiscount
		p.stores = append(p.stores, sp)
	}

	if code := in.CouponCode; code != "" {
		if err := s.applyCoupon(ctx, q, p, userID, code, storeOrder, netByStore); err != nil {
			return nil, err
		}
	}
	if in.Donation > 0 {
		// the donation rides on the first store's order
		p.stores[0].input.Donation = in.Donation
	}
	for i := range p.stores {
		p.stores[i].quote.Summary = pricing.ComputeStore(p.stores[i].input)
	}
	return p, nil
}

func (s *Service) buildStorePlan(ctx context.Context, q Querier, storeID uuid.UUID, items []db.CartItem, products map[uuid.UUID]db.Product) (storePlan, error) {
	offerRows, err := q.ListActiveOffersByStore(ctx, storeID)
	if err != nil {
		return storePlan{}, err
	}
	offers := make([]offer.Offer, 0, len(offerRows))
	for _, row := range offerRows {
		offers = append(offers, offer.Offer{
			ID:            row.ID,
			StoreID:       row.StoreID,
			Label:         row.Label,
			Kind:          offer.Kind(row.Kind),
			PercentBps:    row.PercentBps,
			FlatAmount:    row.FlatAmount,
			MinOrderValue: row.MinOrderValue,
			ProductIDs:    row.ProductIDs,
		})
	}
	lines := make([]offer.Line, 0, len(items))
	chargeLines := make([]charge.Line, 0, len(items))
	ownerIDs := []uuid.UUID{storeID}
	var subtotal, mrpTotal pricing.Money
	for _, it := range items {
		lineSubtotal := pricing.Money(it.Qty) * it.UnitPrice
		subtotal += lineSubtotal
		mrpTotal += pricing.Money(it.Qty) * it.MRP
		lines = append(lines, offer.Line{ProductID: it.ProductID, Qty: it.Qty, UnitPrice: it.UnitPrice})
		chargeLines = append(chargeLines, charge.Line{ProductID: it.ProductID, Qty: it.Qty, Subtotal: lineSubtotal})
		ownerIDs = append(ownerIDs, it.ProductID)
	}
	applied := offer.Apply(offers, lines)

	storeRow, err := q.GetStore(ctx, storeID)
	if err != nil {
		return storePlan{}, err
	}
	var feeOverride *pricing.Money
	if storeRow.PlatformFee.Valid {
		v := storeRow.PlatformFee.Int64
		feeOverride = &v
	}
	chargeRows, err := q.ListExtraCharges(ctx, ownerIDs)
	if err != nil {
		return storePlan{}, err
	}
	productCharges := map[uuid.UUID][]charge.Charge{}
	var storeCharges []charge.Charge
	for _, row := range chargeRows {
		ch := charge.Charge{Label: row.Label, Kind: row.Kind, Amount: row.Amount, PercentBps: row.PercentBps}
		if row.OwnerType == "store" {
			storeCharges = append(storeCharges, ch)
			continue
		}
		productCharges[row.OwnerID] = append(productCharges[row.OwnerID], ch)
	}
	fees := s.Charges.Compute(feeOverride, chargeLines, productCharges, storeCharges)

	sp := storePlan{
		input: pricing.StoreInput{
			StoreID:       storeID,
			MRPTotal:      mrpTotal,
			Subtotal:      subtotal,
			OfferDiscount: applied.StoreDiscount,
			ShippingFee:   s.Shipping.Fee(subtotal - applied.StoreDiscount),
			PlatformFee:   fees.PlatformFee,
			ExtraCharges:  fees.ExtraTotal,
		},
		items: items,
		lines: applied.Lines,
	}
	sp.quote.Fees = fees.Breakdown
	for i, it := range items {
		lr := applied.Lines[i]
		sp.quote.Lines = append(sp.quote.Lines, LineQuote{
			ItemID:        it.ID,
			ProductID:     it.ProductID,
			Title:         it.Title,
			Qty:           it.Qty,
			FreeQty:       lr.FreeQty,
			UnitPrice:     it.UnitPrice,
			MRP:           it.MRP,
			Subtotal:      pricing.Money(it.Qty) * it.UnitPrice,
			Discount:      lr.Discount,
			AppliedOffers: lr.AppliedOffers,
		})
		if p, ok := products[it.ProductID]; ok && p.Stock.Valid && p.Stock.Int32 < it.Qty {
			sp.quote.StockIssues = append(sp.quote.StockIssues, StockError{
				ProductID: it.ProductID,
				Title:     it.Title,
				Requested: it.Qty,
				Available: p.Stock.Int32,
			})
		}
	}
	return sp, nil
}

// applyCoupon validates the code against the post-offer total and spreads
// its discount across the stores proportionally to their pre-discount
// subtotals. Store-scoped coupons bind to their store's slice only.
func (s *Service) applyCoupon(ctx context.Context, q Querier, p *plan, userID uuid.UUID, code string, storeOrder []uuid.UUID, netByStore map[uuid.UUID]pricing.Money) error {
	svc := &coupon.Service{Q: q, Now: s.Now}
	_, rule, err := svc.Resolve(ctx, code)
	if err != nil {
		return err
	}
	var scope *uuid.UUID
	var eligibleTotal pricing.Money
	if rule.StoreID != nil {
		for _, storeID := range storeOrder {
			if storeID == *rule.StoreID {
				id := storeID
				scope = &id
				eligibleTotal = netByStore[storeID]
				break
			}
		}
		// scope stays nil when the store is absent from the cart; the
		// validation below then fails with ErrWrongStore
	} else {
		for _, storeID := range storeOrder {
			eligibleTotal += netByStore[storeID]
		}
	}
	result, err := svc.Preview(ctx, code, &userID, scope, eligibleTotal)
	if err != nil {
		return err
	}
	p.coupon = &result

	weights := make([]pricing.Money, len(p.stores))
	for i := range p.stores {
		if rule.StoreID != nil && p.stores[i].input.StoreID != *rule.StoreID {
			continue
		}
		weights[i] = p.stores[i].input.Subtotal
	}
	shares := pricing.AllocateProportional(result.Discount, weights)
	for i := range p.stores {
		p.stores[i].input.CouponDiscount = shares[i]
	}
	return nil
}

// Commit turns the quoted bill into per-store orders. Each store commits in
// its own transaction; one store failing never rolls back its siblings.
func (s *Service) Commit(ctx context.Context, userID uuid.UUID, in Input) (Output, error) {
	if s == nil || s.Store == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	if in.IdempotencyKey != "" {
		existing, err := s.Store.ListOrdersByIdempotencyKey(ctx, userID, in.IdempotencyKey)
		if err != nil {
			return Output{}, err
		}
		if len(existing) > 0 {
			out := Output{Replayed: true}
			for _, o := range existing {
				out.Orders = append(out.Orders, StoreResult{
					StoreID:    o.StoreID,
					OrderID:    o.ID,
					Status:     "created",
					GrandTotal: o.GrandTotal,
				})
			}
			return out, nil
		}
	}
	p, err := s.buildPlan(ctx, s.Store, userID, in.QuoteInput)
	if err != nil {
		return Output{}, err
	}
	addressJSON, err := json.Marshal(in.Address)
	if err != nil {
		return Output{}, err
	}

	var out Output
	couponSettled := false
	couponDropped := false
	var consumedLines []uuid.UUID
	for i := range p.stores {
		sp := &p.stores[i]
		if couponDropped && sp.input.CouponDiscount > 0 {
			sp.input.CouponDiscount = 0
		}
		summary := pricing.ComputeStore(sp.input)

		settleHere := p.coupon != nil && !couponSettled && !couponDropped && summary.CouponDiscount > 0
		var created db.Order
		var lowStock []db.ReserveStockRow
		lowStockProducts := make([]uuid.UUID, 0)
		commitErr := s.withRetry(ctx, func() error {
			lowStock = lowStock[:0]
			lowStockProducts = lowStockProducts[:0]
			return s.Store.InTx(ctx, func(q Querier) error {
				order := db.Order{
					UserID:          userID,
					StoreID:         summary.StoreID,
					Status:          "Pending",
					PaymentStatus:   "unpaid",
					AddressSnapshot: addressJSON,
					ItemTotal:       summary.ItemTotal,
					DiscountAmount:  summary.DiscountAmount,
					CouponDiscount:  summary.CouponDiscount,
					ShippingFee:     summary.ShippingFee,
					PlatformFee:     summary.PlatformFee,
					ExtraCharges:    summary.ExtraCharges,
					DonationAmount:  summary.DonationAmount,
					GrandTotal:      summary.TotalPayable,
				}
				if p.coupon != nil && summary.CouponDiscount > 0 {
					order.CouponCode = pgtype.Text{String: p.coupon.Rule.Code, Valid: true}
				}
				if in.IdempotencyKey != "" {
					order.IdempotencyKey = pgtype.Text{String: in.IdempotencyKey, Valid: true}
				}
				var err error
				created, err = q.InsertOrder(ctx, order)
				if err != nil {
					return err
				}
				for j, it := range sp.items {
					lr := sp.lines[j]
					if err := q.InsertOrderItem(ctx, db.OrderItem{
						OrderID:       created.ID,
						ProductID:     it.ProductID,
						Title:         it.Title,
						Qty:           it.Qty,
						FreeQty:       lr.FreeQty,
						UnitPrice:     it.UnitPrice,
						MRP:           it.MRP,
						Discount:      lr.Discount,
						AppliedOffers: lr.AppliedOffers,
					}); err != nil {
						return err
					}
					if err := s.reserveLine(ctx, q, it, &lowStock, &lowStockProducts); err != nil {
						return err
					}
				}
				if settleHere {
					couponSvc := &coupon.Service{Q: q, Now: s.Now}
					if err := couponSvc.Settle(ctx, p.coupon.Coupon.ID, userID, created.ID, summary.CouponDiscount); err != nil {
						return err
					}
				}
				return nil
			})
		})
		if commitErr != nil {
			countOrderCommit("failed")
			res := StoreResult{StoreID: sp.input.StoreID, Status: "failed", Error: commitErr.Error()}
			var stockErr *StockError
			if errors.As(commitErr, &stockErr) {
				res.Details = stockErr
				if obs.StockReservationFailures != nil {
					obs.StockReservationFailures.Inc()
				}
			}
			out.Orders = append(out.Orders, res)
			if settleHere {
				// the coupon never got consumed; stop charging it to
				// the remaining stores
				couponDropped = true
				countCouponSettle("dropped")
			}
			continue
		}
		countOrderCommit("committed")
		if settleHere {
			couponSettled = true
			countCouponSettle("settled")
		}
		out.Orders = append(out.Orders, StoreResult{
			StoreID:    sp.input.StoreID,
			OrderID:    created.ID,
			Status:     "created",
			GrandTotal: created.GrandTotal,
		})
		for _, it := range sp.items {
			consumedLines = append(consumedLines, it.ID)
		}
		s.emitOrderCreated(ctx, created)
		for k, row := range lowStock {
			s.emitStockLow(ctx, lowStockProducts[k], row)
		}
	}
	if len(consumedLines) > 0 {
		if err := s.Store.SoftDeleteCartItems(ctx, consumedLines); err != nil {
			return out, err
		}
	}
	return out, nil
}

// reserveLine decrements tracked stock, skipping untracked products. An
// insufficient-stock failure is returned as a StockError carrying what is
// actually left.
func (s *Service) reserveLine(ctx context.Context, q Querier, it db.CartItem, lowStock *[]db.ReserveStockRow, lowStockProducts *[]uuid.UUID) error {
	row, err := q.ReserveStock(ctx, it.ProductID, it.Qty)
	if err == nil {
		if row.Stock <= row.LowStockThreshold {
			*lowStock = append(*lowStock, row)
			*lowStockProducts = append(*lowStockProducts, it.ProductID)
		}
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	product, gerr := q.GetProduct(ctx, it.ProductID)
	if gerr == nil && !product.Stock.Valid {
		// untracked stock: nothing to reserve
		return nil
	}
	se := &StockError{ProductID: it.ProductID, Title: it.Title, Requested: it.Qty}
	if gerr == nil {
		se.Available = product.Stock.Int32
	}
	return se
}

func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	attempts := s.attempts()
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if obs.CheckoutRetriesTotal != nil {
			obs.CheckoutRetriesTotal.Inc()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(resilience.Backoff(s.retryBase(), attempt, 0.2)):
		}
	}
	return err
}

func countOrderCommit(result string) {
	if obs.OrdersCommittedTotal != nil {
		obs.OrdersCommittedTotal.WithLabelValues(result).Inc()
	}
}

func countCouponSettle(result string) {
	if obs.CouponRedemptionsTotal != nil {
		obs.CouponRedemptionsTotal.WithLabelValues(result).Inc()
	}
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization failure / deadlock detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func (s *Service) emitOrderCreated(ctx context.Context, o db.Order) {
	if s.Events == nil {
		return
	}
	_, _ = s.Events.Emit(ctx, events.TopicOrderCreated, o.ID, map[string]any{
		"orderId":    o.ID.String(),
		"storeId":    o.StoreID.String(),
		"userId":     o.UserID.String(),
		"grandTotal": o.GrandTotal,
	})
}

func (s *Service) emitStockLow(ctx context.Context, productID uuid.UUID, row db.ReserveStockRow) {
	if s.Events == nil {
		return
	}
	_, _ = s.Events.Emit(ctx, events.TopicStockLow, productID, map[string]any{
		"productId": productID.String(),
		"storeId":   row.StoreID.String(),
		"stock":     row.Stock,
		"threshold": row.LowStockThreshold,
	})
	if obs.LowStockEventsTotal != nil {
		obs.LowStockEventsTotal.Inc()
	}
}
