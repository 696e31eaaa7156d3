package charge

import (
	"github.com/google/uuid"

	"github.com/arvind-dev/backend-bazaar/internal/pricing"
)

// Charge kinds.
const (
	KindFlat    = "flat"
	KindPercent = "percent"
)

// Charge is a seller-configured fee attached to a product or a store.
type Charge struct {
	Label      string
	Kind       string
	Amount     pricing.Money
	PercentBps int32
}

// Line is one cart line the calculator prices charges against.
type Line struct {
	ProductID uuid.UUID
	Qty       int32
	Subtotal  pricing.Money
}

// Entry is one row of the itemised fee breakdown shown on the bill.
type Entry struct {
	Label  string        `json:"label"`
	Source string        `json:"source"` // "platform", "product" or "store"
	Amount pricing.Money `json:"amount"`
}

// Result is the computed fee set for one store's portion of the cart.
type Result struct {
	PlatformFee pricing.Money
	ExtraTotal  pricing.Money
	Breakdown   []Entry
}

// Calculator resolves platform and extra charges for a store order.
type Calculator struct {
	DefaultPlatformFee pricing.Money
}

// Compute builds the fee breakdown. The platform fee comes first, then
// product-level charges in line order, then store-level charges. Product
// charges apply once per line: flat charges are independent of quantity and
// percent charges are taken on the line subtotal. Store percent charges are
// taken on the store's products subtotal.
func (c Calculator) Compute(storeOverride *pricing.Money, lines []Line, productCharges map[uuid.UUID][]Charge, storeCharges []Charge) Result {
	res := Result{PlatformFee: c.DefaultPlatformFee}
	if storeOverride != nil {
		res.PlatformFee = *storeOverride
	}
	res.PlatformFee = pricing.ClampNonNegative(res.PlatformFee)
	if res.PlatformFee > 0 {
		res.Breakdown = append(res.Breakdown, Entry{Label: "Platform fee", Source: "platform", Amount: res.PlatformFee})
	}

	var productsSubtotal pricing.Money
	for _, ln := range lines {
		productsSubtotal += ln.Subtotal
		for _, ch := range productCharges[ln.ProductID] {
			amount := chargeAmount(ch, ln.Subtotal)
			if amount <= 0 {
				continue
			}
			res.ExtraTotal += amount
			res.Breakdown = append(res.Breakdown, Entry{Label: ch.Label, Source: "product", Amount: amount})
		}
	}
	for _, ch := range storeCharges {
		amount := chargeAmount(ch, productsSubtotal)
		if amount <= 0 {
			continue
		}
		res.ExtraTotal += amount
		res.Breakdown = append(res.Breakdown, Entry{Label: ch.Label, Source: "store", Amount: amount})
	}
	return res
}

func chargeAmount(ch Charge, base pricing.Money) pricing.Money {
	switch ch.Kind {
	case KindPercent:
		if ch.PercentBps <= 0 {
			return 0
		}
		return pricing.ApplyBps(base, ch.PercentBps)
	default:
		return pricing.ClampNonNegative(ch.Amount)
	}
}
