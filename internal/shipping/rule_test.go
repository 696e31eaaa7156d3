package shipping

import "testing"

func TestFeeBelowThreshold(t *testing.T) {
	rule := FeeRule{FreeThreshold: 500_00, FlatFee: 50_00}
	if got := rule.Fee(200_00); got != 50_00 {
		t.Fatalf("expected fee 5000, got %d", got)
	}
}

func TestFeeThresholdIsExclusive(t *testing.T) {
	rule := FeeRule{FreeThreshold: 500_00, FlatFee: 50_00}
	// exactly at the threshold still pays
	if got := rule.Fee(500_00); got != 50_00 {
		t.Fatalf("expected fee 5000 at threshold, got %d", got)
	}
	// one paisa above ships free
	if got := rule.Fee(500_01); got != 0 {
		t.Fatalf("expected free shipping above threshold, got %d", got)
	}
}

func TestFeeNeverNegative(t *testing.T) {
	rule := FeeRule{FreeThreshold: 500_00, FlatFee: -10}
	if got := rule.Fee(100_00); got != 0 {
		t.Fatalf("expected clamped fee 0, got %d", got)
	}
}
