package offer

import (
	"github.com/google/uuid"

	"github.com/arvind-dev/backend-bazaar/internal/pricing"
)

// Kind enumerates the promotion types a seller can configure.
type Kind string

const (
	// KindPercentage discounts each line by a percentage of its total.
	KindPercentage Kind = "percentage_discount"
	// KindFlat subtracts a fixed amount from the store order once.
	KindFlat Kind = "flat_discount"
	// KindBOGO marks matching lines with an equal free quantity. The free
	// units are fulfilment metadata only and never reduce the charged amount.
	KindBOGO Kind = "buy_one_get_one"
)

// Offer is a store promotion as configured by the seller.
type Offer struct {
	ID            uuid.UUID
	StoreID       uuid.UUID
	Label         string
	Kind          Kind
	PercentBps    int32
	FlatAmount    pricing.Money
	MinOrderValue pricing.Money
	ProductIDs    []uuid.UUID // BOGO only
}

// Line is a priced cart line belonging to the offer's store.
type Line struct {
	ProductID uuid.UUID
	Qty       int32
	UnitPrice pricing.Money
}

// LineResult reports what the engine did to a single line.
type LineResult struct {
	Discount      pricing.Money
	FreeQty       int32
	AppliedOffers []string
}

// Result aggregates per-line outcomes and the store-level discount total.
type Result struct {
	Lines         []LineResult
	StoreDiscount pricing.Money
}

// Apply evaluates every offer against the store's pre-discount subtotal and
// stacks eligible discounts additively. Evaluating against the fixed subtotal
// (rather than a running one) makes the outcome independent of the order the
// seller saved the offers in.
func Apply(offers []Offer, lines []Line) Result {
	res := Result{Lines: make([]LineResult, len(lines))}
	if len(offers) == 0 || len(lines) == 0 {
		return res
	}
	var subtotal pricing.Money
	for _, l := range lines {
		if l.Qty > 0 {
			subtotal += pricing.Money(l.Qty) * l.UnitPrice
		}
	}
	for _, o := range offers {
		if subtotal < o.MinOrderValue {
			continue
		}
		switch o.Kind {
		case KindPercentage:
			if o.PercentBps <= 0 {
				continue
			}
			for i, l := range lines {
				if l.Qty <= 0 {
					continue
				}
				lineTotal := pricing.Money(l.Qty) * l.UnitPrice
				d := pricing.ApplyBps(lineTotal, o.PercentBps)
				if d <= 0 {
					continue
				}
				res.Lines[i].Discount += d
				res.Lines[i].AppliedOffers = append(res.Lines[i].AppliedOffers, o.Label)
				res.StoreDiscount += d
			}
		case KindFlat:
			if o.FlatAmount <= 0 {
				continue
			}
			res.StoreDiscount += o.FlatAmount
		case KindBOGO:
			for i, l := range lines {
				if l.Qty <= 0 || !containsID(o.ProductIDs, l.ProductID) {
					continue
				}
				res.Lines[i].FreeQty += l.Qty
				res.Lines[i].AppliedOffers = append(res.Lines[i].AppliedOffers, o.Label)
			}
		}
	}
	if res.StoreDiscount > subtotal {
		res.StoreDiscount = subtotal
	}
	return res
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
