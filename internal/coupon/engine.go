package coupon

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arvind-dev/backend-bazaar/internal/pricing"
)

var (
	// ErrNotFound is returned when the code does not resolve to a live coupon.
	ErrNotFound = errors.New("coupon not found")
	// ErrNotStarted is returned before the coupon's validity window opens.
	ErrNotStarted = errors.New("coupon not active yet")
	// ErrExpired is returned after the validity window closes.
	ErrExpired = errors.New("coupon expired")
	// ErrWrongStore is returned when a store-scoped coupon is used elsewhere.
	ErrWrongStore = errors.New("coupon not valid for this store")
	// ErrUsageLimitReached indicates the global usage quota is exhausted.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrAlreadyUsed is returned when a single-use coupon was already redeemed by the user.
	ErrAlreadyUsed = errors.New("coupon already used")
	// ErrMinOrderNotMet indicates the order total is below the coupon requirement.
	ErrMinOrderNotMet = errors.New("coupon minimum order value not met")
	// ErrNotEligible is returned when the user class does not match the coupon's eligibility.
	ErrNotEligible = errors.New("coupon not eligible for this user")
)

// Kinds of coupon discounts.
const (
	KindFlat       = "flat"
	KindPercentage = "percentage"
)

// User eligibility classes.
const (
	EligibilityAll      = "all"
	EligibilityNewUser  = "new_user"
	EligibilityExisting = "existing_user"
)

// Rule captures the runtime constraints of a coupon.
type Rule struct {
	Code          string
	Kind          string
	Value         pricing.Money
	PercentBps    int32
	MaxDiscount   pricing.Money // 0 = uncapped, percentage only
	MinOrderValue pricing.Money
	UsageLimit    int32 // 0 = unlimited
	UsageCount    int32
	ValidFrom     time.Time
	ValidUntil    time.Time
	Eligibility   string
	SingleUse     bool
	StoreID       *uuid.UUID // nil = global
}

// Context is the checkout state the rule is validated against.
type Context struct {
	StoreID       *uuid.UUID
	ItemTotal     pricing.Money
	AlreadyUsed   bool // user has a redemption row for this coupon
	IsNewUser     bool // user has never placed an order
	HasUserRecord bool // user identity is known
}

// Validate checks the rule against the checkout context. The first failing
// check wins: window, store scope, eligibility, usage limit, single-use
// history, minimum order value.
func (r Rule) Validate(now time.Time, c Context) error {
	if now.Before(r.ValidFrom) {
		return ErrNotStarted
	}
	if now.After(r.ValidUntil) {
		return ErrExpired
	}
	if r.StoreID != nil {
		if c.StoreID == nil || *c.StoreID != *r.StoreID {
			return ErrWrongStore
		}
	}
	switch r.Eligibility {
	case EligibilityNewUser:
		if c.HasUserRecord && !c.IsNewUser {
			return ErrNotEligible
		}
	case EligibilityExisting:
		if c.HasUserRecord && c.IsNewUser {
			return ErrNotEligible
		}
	}
	if r.UsageLimit > 0 && r.UsageCount >= r.UsageLimit {
		return ErrUsageLimitReached
	}
	if r.SingleUse && c.AlreadyUsed {
		return ErrAlreadyUsed
	}
	if c.ItemTotal < r.MinOrderValue {
		return fmt.Errorf("minimum order value %d required: %w", r.MinOrderValue, ErrMinOrderNotMet)
	}
	return nil
}

// Compute returns the discount for the order total. Flat coupons cap at the
// total; percentage coupons round once and honour the max-discount cap. The
// result never exceeds the total and is never negative.
func (r Rule) Compute(orderTotal pricing.Money) pricing.Money {
	if orderTotal <= 0 {
		return 0
	}
	var discount pricing.Money
	switch r.Kind {
	case KindPercentage:
		if r.PercentBps <= 0 {
			return 0
		}
		discount = pricing.ApplyBps(orderTotal, r.PercentBps)
		if r.MaxDiscount > 0 && discount > r.MaxDiscount {
			discount = r.MaxDiscount
		}
	default:
		discount = r.Value
	}
	if discount > orderTotal {
		discount = orderTotal
	}
	return pricing.ClampNonNegative(discount)
}
