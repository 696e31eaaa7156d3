package offer

import (
	"testing"

	"github.com/google/uuid"
)

func TestApplyPercentagePerLine(t *testing.T) {
	store := uuid.New()
	offers := []Offer{{StoreID: store, Label: "10% off", Kind: KindPercentage, PercentBps: 1000}}
	lines := []Line{
		{ProductID: uuid.New(), Qty: 2, UnitPrice: 10_000},
		{ProductID: uuid.New(), Qty: 1, UnitPrice: 5_000},
	}
	res := Apply(offers, lines)
	if res.Lines[0].Discount != 2_000 {
		t.Fatalf("expected 2000 discount on first line, got %d", res.Lines[0].Discount)
	}
	if res.Lines[1].Discount != 500 {
		t.Fatalf("expected 500 discount on second line, got %d", res.Lines[1].Discount)
	}
	if res.StoreDiscount != 2_500 {
		t.Fatalf("expected 2500 store discount, got %d", res.StoreDiscount)
	}
}

func TestApplyFlatOnce(t *testing.T) {
	offers := []Offer{{Label: "50 off", Kind: KindFlat, FlatAmount: 5_000}}
	lines := []Line{
		{ProductID: uuid.New(), Qty: 1, UnitPrice: 20_000},
		{ProductID: uuid.New(), Qty: 3, UnitPrice: 20_000},
	}
	res := Apply(offers, lines)
	if res.StoreDiscount != 5_000 {
		t.Fatalf("flat discount must apply once per store, got %d", res.StoreDiscount)
	}
	if res.Lines[0].Discount != 0 || res.Lines[1].Discount != 0 {
		t.Fatal("flat discount must not be attributed to individual lines")
	}
}

func TestApplyBOGOChargeUnchanged(t *testing.T) {
	prod := uuid.New()
	offers := []Offer{{Label: "BOGO", Kind: KindBOGO, ProductIDs: []uuid.UUID{prod}}}
	lines := []Line{{ProductID: prod, Qty: 3, UnitPrice: 10_000}}
	res := Apply(offers, lines)
	if res.Lines[0].FreeQty != 3 {
		t.Fatalf("expected free quantity 3, got %d", res.Lines[0].FreeQty)
	}
	if res.Lines[0].Discount != 0 || res.StoreDiscount != 0 {
		t.Fatal("BOGO must not change the charged amount")
	}
	if len(res.Lines[0].AppliedOffers) != 1 || res.Lines[0].AppliedOffers[0] != "BOGO" {
		t.Fatalf("expected BOGO recorded on line, got %v", res.Lines[0].AppliedOffers)
	}
}

func TestApplyMinOrderValueGate(t *testing.T) {
	offers := []Offer{{Label: "big spender", Kind: KindPercentage, PercentBps: 1000, MinOrderValue: 50_000}}
	lines := []Line{{ProductID: uuid.New(), Qty: 1, UnitPrice: 30_000}}
	res := Apply(offers, lines)
	if res.StoreDiscount != 0 {
		t.Fatalf("offer below min order value must not apply, got %d", res.StoreDiscount)
	}
}

func TestApplyStacksAgainstFixedSubtotal(t *testing.T) {
	// Both offers require 40000; after the first 50% discount the running
	// total would fall below the threshold, but eligibility is decided
	// against the pre-discount subtotal so both still apply.
	offers := []Offer{
		{Label: "half", Kind: KindPercentage, PercentBps: 5000, MinOrderValue: 40_000},
		{Label: "extra", Kind: KindFlat, FlatAmount: 1_000, MinOrderValue: 40_000},
	}
	lines := []Line{{ProductID: uuid.New(), Qty: 1, UnitPrice: 40_000}}
	res := Apply(offers, lines)
	if res.StoreDiscount != 21_000 {
		t.Fatalf("expected 21000 stacked discount, got %d", res.StoreDiscount)
	}
}

func TestApplyDiscountCappedAtSubtotal(t *testing.T) {
	offers := []Offer{
		{Label: "a", Kind: KindFlat, FlatAmount: 30_000},
		{Label: "b", Kind: KindFlat, FlatAmount: 30_000},
	}
	lines := []Line{{ProductID: uuid.New(), Qty: 1, UnitPrice: 40_000}}
	res := Apply(offers, lines)
	if res.StoreDiscount != 40_000 {
		t.Fatalf("store discount must cap at subtotal, got %d", res.StoreDiscount)
	}
}
