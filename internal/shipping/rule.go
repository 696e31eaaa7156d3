package shipping

import "github.com/arvind-dev/backend-bazaar/internal/pricing"

// FeeRule computes the delivery fee for one store order. Orders strictly
// above the free-shipping threshold ship free; everything else pays the flat
// fee.
type FeeRule struct {
	FreeThreshold pricing.Money
	FlatFee       pricing.Money
}

// Fee returns the shipping fee for the store's products subtotal.
func (r FeeRule) Fee(subtotal pricing.Money) pricing.Money {
	if subtotal > r.FreeThreshold {
		return 0
	}
	return pricing.ClampNonNegative(r.FlatFee)
}
