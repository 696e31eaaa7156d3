package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arvind-dev/backend-bazaar/internal/db"
	"github.com/arvind-dev/backend-bazaar/internal/pricing"
)

// Querier captures the database methods required by the coupon service.
type Querier interface {
	GetCouponByCode(ctx context.Context, code string) (db.Coupon, error)
	HasRedemptionByUser(ctx context.Context, couponID, userID uuid.UUID) (bool, error)
	CountOrdersByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	InsertRedemption(ctx context.Context, r db.CouponRedemption) error
	IncrementCouponUsage(ctx context.Context, id uuid.UUID) (bool, error)
}

// Result describes a successful dry-run evaluation.
type Result struct {
	Coupon   db.Coupon
	Rule     Rule
	Discount pricing.Money
}

// Service evaluates coupons and settles redemptions.
type Service struct {
	Q   Querier
	Now func() time.Time
}

// Resolve loads the coupon and its rule without validating anything. Callers
// that need the rule's store scope before they can shape the evaluation
// context (the checkout pipeline) resolve first and preview second.
func (s *Service) Resolve(ctx context.Context, code string) (db.Coupon, Rule, error) {
	if s == nil || s.Q == nil {
		return db.Coupon{}, Rule{}, errors.New("coupon service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return db.Coupon{}, Rule{}, ErrNotFound
	}
	row, err := s.Q.GetCouponByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Coupon{}, Rule{}, ErrNotFound
		}
		return db.Coupon{}, Rule{}, err
	}
	return row, RuleFromModel(row), nil
}

// Preview validates the code against the user and cart context and computes
// the discount without mutating any state.
func (s *Service) Preview(ctx context.Context, code string, userID *uuid.UUID, storeID *uuid.UUID, itemTotal pricing.Money) (Result, error) {
	if s == nil || s.Q == nil {
		return Result{}, errors.New("coupon service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Result{}, fmt.Errorf("code is required: %w", ErrNotFound)
	}
	row, err := s.Q.GetCouponByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Result{}, ErrNotFound
		}
		return Result{}, err
	}
	rule := RuleFromModel(row)

	evalCtx := Context{StoreID: storeID, ItemTotal: itemTotal}
	if userID != nil {
		evalCtx.HasUserRecord = true
		if rule.SingleUse {
			used, err := s.Q.HasRedemptionByUser(ctx, row.ID, *userID)
			if err != nil {
				return Result{}, err
			}
			evalCtx.AlreadyUsed = used
		}
		if rule.Eligibility == EligibilityNewUser || rule.Eligibility == EligibilityExisting {
			orders, err := s.Q.CountOrdersByUser(ctx, *userID)
			if err != nil {
				return Result{}, err
			}
			evalCtx.IsNewUser = orders == 0
		}
	}
	if err := rule.Validate(s.now(), evalCtx); err != nil {
		return Result{}, err
	}
	return Result{Coupon: row, Rule: rule, Discount: rule.Compute(itemTotal)}, nil
}

// Settle records the redemption at order commit time. The usage-count bump is
// a single conditional update so two concurrent checkouts can never both
// consume the last use of a limited coupon.
func (s *Service) Settle(ctx context.Context, couponID, userID, orderID uuid.UUID, amount pricing.Money) error {
	if s == nil || s.Q == nil {
		return errors.New("coupon service not configured")
	}
	ok, err := s.Q.IncrementCouponUsage(ctx, couponID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUsageLimitReached
	}
	return s.Q.InsertRedemption(ctx, db.CouponRedemption{
		CouponID: couponID,
		UserID:   userID,
		OrderID:  orderID,
		Amount:   amount,
	})
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RuleFromModel converts a coupon row into the evaluation rule.
func RuleFromModel(c db.Coupon) Rule {
	rule := Rule{
		Code:          c.Code,
		Kind:          c.Kind,
		Value:         c.Value,
		PercentBps:    c.PercentBps,
		MinOrderValue: c.MinOrderValue,
		UsageLimit:    c.UsageLimit,
		UsageCount:    c.UsageCount,
		ValidFrom:     c.ValidFrom,
		ValidUntil:    c.ValidUntil,
		Eligibility:   c.Eligibility,
		SingleUse:     c.SingleUse,
	}
	if c.MaxDiscount.Valid {
		rule.MaxDiscount = c.MaxDiscount.Int64
	}
	if c.StoreID.Valid {
		id := c.StoreID.UUID
		rule.StoreID = &id
	}
	return rule
}
