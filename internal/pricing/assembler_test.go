package pricing

import (
	"testing"

	"github.com/google/uuid"
)

func TestComputeStoreGrandTotal(t *testing.T) {
	sum := ComputeStore(StoreInput{
		StoreID:        uuid.New(),
		Subtotal:       120_000,
		OfferDiscount:  10_000,
		CouponDiscount: 10_000,
		ShippingFee:    0,
		PlatformFee:    500,
		ExtraCharges:   1_500,
		Donation:       1_000,
	})
	want := Money(120_000 - 10_000 - 10_000 + 500 + 1_500 + 1_000)
	if sum.TotalPayable != want {
		t.Fatalf("expected total %d, got %d", want, sum.TotalPayable)
	}
	if sum.Saved != 20_000 {
		t.Fatalf("expected saved 20000, got %d", sum.Saved)
	}
}

func TestComputeStoreClampsAtZero(t *testing.T) {
	sum := ComputeStore(StoreInput{Subtotal: 1_000, OfferDiscount: 5_000})
	if sum.DiscountAmount != 1_000 {
		t.Fatalf("discount should cap at subtotal, got %d", sum.DiscountAmount)
	}
	if sum.TotalPayable != 0 {
		t.Fatalf("expected zero payable, got %d", sum.TotalPayable)
	}
}

func TestDiscountNeverExceedsItemTotal(t *testing.T) {
	sum := ComputeStore(StoreInput{Subtotal: 50_000, OfferDiscount: 30_000, CouponDiscount: 40_000})
	if got := sum.DiscountAmount + sum.CouponDiscount; got > sum.ItemTotal {
		t.Fatalf("combined discount %d exceeds item total %d", got, sum.ItemTotal)
	}
}

func TestCombineSums(t *testing.T) {
	a := ComputeStore(StoreInput{Subtotal: 30_000, ShippingFee: 5_000})
	b := ComputeStore(StoreInput{Subtotal: 70_000})
	overall := Combine([]StoreSummary{a, b})
	if overall.ItemTotal != 100_000 {
		t.Fatalf("expected item total 100000, got %d", overall.ItemTotal)
	}
	if overall.TotalPayable != a.TotalPayable+b.TotalPayable {
		t.Fatalf("overall payable should be the sum of store payables")
	}
}

func TestAllocateProportionalExact(t *testing.T) {
	parts := AllocateProportional(10_000, []Money{30_000, 70_000})
	if parts[0]+parts[1] != 10_000 {
		t.Fatalf("parts must sum to the total, got %d", parts[0]+parts[1])
	}
	if parts[0] != 3_000 || parts[1] != 7_000 {
		t.Fatalf("expected 3000/7000 split, got %d/%d", parts[0], parts[1])
	}
}

func TestAllocateProportionalRemainder(t *testing.T) {
	// 100 split across three equal stores cannot divide evenly; the residue
	// must still land somewhere so the parts sum exactly.
	parts := AllocateProportional(100, []Money{1, 1, 1})
	var sum Money
	for _, p := range parts {
		sum += p
	}
	if sum != 100 {
		t.Fatalf("expected parts to sum to 100, got %d", sum)
	}
}

func TestApplyBpsRoundsHalfUp(t *testing.T) {
	// 10% of 105 minor units is 10.5, rounds to 11.
	if got := ApplyBps(105, 1000); got != 11 {
		t.Fatalf("expected 11, got %d", got)
	}
}
