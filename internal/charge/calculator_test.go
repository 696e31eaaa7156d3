package charge

import (
	"testing"

	"github.com/google/uuid"

	"github.com/arvind-dev/backend-bazaar/internal/pricing"
)

func TestComputePlatformFeeDefault(t *testing.T) {
	calc := Calculator{DefaultPlatformFee: 5_00}
	res := calc.Compute(nil, nil, nil, nil)
	if res.PlatformFee != 5_00 {
		t.Fatalf("expected default fee 500, got %d", res.PlatformFee)
	}
}

func TestComputePlatformFeeOverride(t *testing.T) {
	calc := Calculator{DefaultPlatformFee: 5_00}
	override := pricing.Money(2_00)
	res := calc.Compute(&override, nil, nil, nil)
	if res.PlatformFee != 2_00 {
		t.Fatalf("expected override fee 200, got %d", res.PlatformFee)
	}
	// a zero override waives the fee entirely
	zero := pricing.Money(0)
	res = calc.Compute(&zero, nil, nil, nil)
	if res.PlatformFee != 0 {
		t.Fatalf("expected waived fee, got %d", res.PlatformFee)
	}
	if len(res.Breakdown) != 0 {
		t.Fatalf("expected empty breakdown for waived fee, got %v", res.Breakdown)
	}
}

func TestComputeProductCharges(t *testing.T) {
	prodA := uuid.New()
	prodB := uuid.New()
	calc := Calculator{}
	lines := []Line{
		{ProductID: prodA, Qty: 2, Subtotal: 400_00},
		{ProductID: prodB, Qty: 1, Subtotal: 100_00},
	}
	charges := map[uuid.UUID][]Charge{
		prodA: {{Label: "Gift wrap", Kind: KindFlat, Amount: 10_00}},
		prodB: {{Label: "Handling", Kind: KindPercent, PercentBps: 500}},
	}
	res := calc.Compute(nil, lines, charges, nil)
	// flat 10.00 + 5% of 100.00 = 15.00
	if res.ExtraTotal != 15_00 {
		t.Fatalf("expected extra total 1500, got %d", res.ExtraTotal)
	}
	if len(res.Breakdown) != 2 {
		t.Fatalf("expected 2 breakdown entries, got %d", len(res.Breakdown))
	}
	if res.Breakdown[0].Source != "product" || res.Breakdown[0].Amount != 10_00 {
		t.Fatalf("unexpected first entry: %+v", res.Breakdown[0])
	}
}

func TestComputeStoreChargesUsesProductsSubtotal(t *testing.T) {
	calc := Calculator{DefaultPlatformFee: 5_00}
	lines := []Line{
		{ProductID: uuid.New(), Qty: 1, Subtotal: 300_00},
		{ProductID: uuid.New(), Qty: 1, Subtotal: 700_00},
	}
	storeCharges := []Charge{
		{Label: "Packaging", Kind: KindFlat, Amount: 20_00},
		{Label: "Service", Kind: KindPercent, PercentBps: 100},
	}
	res := calc.Compute(nil, lines, nil, storeCharges)
	// flat 20.00 + 1% of 1000.00 = 30.00
	if res.ExtraTotal != 30_00 {
		t.Fatalf("expected extra total 3000, got %d", res.ExtraTotal)
	}
	if res.Breakdown[0].Source != "platform" {
		t.Fatalf("expected platform entry first, got %+v", res.Breakdown[0])
	}
	last := res.Breakdown[len(res.Breakdown)-1]
	if last.Source != "store" || last.Amount != 10_00 {
		t.Fatalf("unexpected last entry: %+v", last)
	}
}

func TestComputeSkipsNonPositiveCharges(t *testing.T) {
	prod := uuid.New()
	calc := Calculator{}
	lines := []Line{{ProductID: prod, Qty: 1, Subtotal: 100_00}}
	charges := map[uuid.UUID][]Charge{
		prod: {{Label: "Broken", Kind: KindFlat, Amount: -5_00}, {Label: "NoRate", Kind: KindPercent}},
	}
	res := calc.Compute(nil, lines, charges, nil)
	if res.ExtraTotal != 0 || len(res.Breakdown) != 0 {
		t.Fatalf("expected nothing charged, got %+v", res)
	}
}
