package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/arvind-dev/backend-bazaar/internal/db"
)

type stubQueries struct {
	coupon        db.Coupon
	redeemed      bool
	orderCount    int64
	usageOK       bool
	increments    int
	redemptions   []db.CouponRedemption
	redemptionErr error
}

func (s *stubQueries) GetCouponByCode(ctx context.Context, code string) (db.Coupon, error) {
	if s.coupon.Code == "" {
		return db.Coupon{}, pgx.ErrNoRows
	}
	return s.coupon, nil
}

func (s *stubQueries) HasRedemptionByUser(ctx context.Context, couponID, userID uuid.UUID) (bool, error) {
	return s.redeemed, nil
}

func (s *stubQueries) CountOrdersByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.orderCount, nil
}

func (s *stubQueries) InsertRedemption(ctx context.Context, r db.CouponRedemption) error {
	if s.redemptionErr != nil {
		return s.redemptionErr
	}
	s.redemptions = append(s.redemptions, r)
	return nil
}

func (s *stubQueries) IncrementCouponUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	s.increments++
	return s.usageOK, nil
}

func newCoupon(kind string, value int64, bps int32) db.Coupon {
	now := time.Now()
	return db.Coupon{
		ID:          uuid.New(),
		Code:        "PROMO",
		Kind:        kind,
		Value:       value,
		PercentBps:  bps,
		ValidFrom:   now.Add(-time.Hour),
		ValidUntil:  now.Add(time.Hour),
		Eligibility: EligibilityAll,
	}
}

func TestPreviewUnknownCode(t *testing.T) {
	svc := &Service{Q: &stubQueries{}}
	_, err := svc.Preview(context.Background(), "NOPE", nil, nil, 1000)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPreviewPercentageCapped(t *testing.T) {
	c := newCoupon(KindPercentage, 0, 1000)
	c.MaxDiscount = pgtype.Int8{Int64: 100_00, Valid: true}
	c.MinOrderValue = 200_00
	svc := &Service{Q: &stubQueries{coupon: c}}
	result, err := svc.Preview(context.Background(), "PROMO", nil, nil, 1200_00)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result.Discount != 100_00 {
		t.Fatalf("expected discount 10000, got %d", result.Discount)
	}
}

func TestPreviewMinOrderNotMet(t *testing.T) {
	c := newCoupon(KindFlat, 50_00, 0)
	c.MinOrderValue = 100_00
	svc := &Service{Q: &stubQueries{coupon: c}}
	_, err := svc.Preview(context.Background(), "PROMO", nil, nil, 30_00)
	if !errors.Is(err, ErrMinOrderNotMet) {
		t.Fatalf("expected ErrMinOrderNotMet, got %v", err)
	}
}

func TestPreviewSingleUseAlreadyRedeemed(t *testing.T) {
	c := newCoupon(KindFlat, 10_00, 0)
	c.SingleUse = true
	userID := uuid.New()
	svc := &Service{Q: &stubQueries{coupon: c, redeemed: true}}
	_, err := svc.Preview(context.Background(), "PROMO", &userID, nil, 50_00)
	if !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}
}

func TestPreviewNewUserEligibility(t *testing.T) {
	c := newCoupon(KindFlat, 10_00, 0)
	c.Eligibility = EligibilityNewUser
	userID := uuid.New()
	svc := &Service{Q: &stubQueries{coupon: c, orderCount: 3}}
	_, err := svc.Preview(context.Background(), "PROMO", &userID, nil, 50_00)
	if !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}
}

func TestPreviewAnonymousSkipsUserChecks(t *testing.T) {
	c := newCoupon(KindFlat, 10_00, 0)
	c.Eligibility = EligibilityNewUser
	c.SingleUse = true
	svc := &Service{Q: &stubQueries{coupon: c}}
	result, err := svc.Preview(context.Background(), "PROMO", nil, nil, 50_00)
	if err != nil {
		t.Fatalf("expected success for anonymous preview, got %v", err)
	}
	if result.Discount != 10_00 {
		t.Fatalf("expected discount 1000, got %d", result.Discount)
	}
}

func TestSettleUsageLimitRace(t *testing.T) {
	stub := &stubQueries{usageOK: false}
	svc := &Service{Q: stub}
	err := svc.Settle(context.Background(), uuid.New(), uuid.New(), uuid.New(), 10_00)
	if !errors.Is(err, ErrUsageLimitReached) {
		t.Fatalf("expected ErrUsageLimitReached, got %v", err)
	}
	if len(stub.redemptions) != 0 {
		t.Fatalf("expected no redemption recorded, got %d", len(stub.redemptions))
	}
}

func TestSettleRecordsRedemption(t *testing.T) {
	stub := &stubQueries{usageOK: true}
	svc := &Service{Q: stub}
	orderID := uuid.New()
	if err := svc.Settle(context.Background(), uuid.New(), uuid.New(), orderID, 25_00); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if stub.increments != 1 || len(stub.redemptions) != 1 {
		t.Fatalf("expected one increment and one redemption, got %d/%d", stub.increments, len(stub.redemptions))
	}
	if stub.redemptions[0].OrderID != orderID || stub.redemptions[0].Amount != 25_00 {
		t.Fatalf("unexpected redemption row: %+v", stub.redemptions[0])
	}
}
