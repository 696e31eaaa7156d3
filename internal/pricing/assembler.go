package pricing

import "github.com/google/uuid"

// StoreInput carries the priced components for one store's slice of the cart.
// All values are pre-computed by the offer, coupon, charge and shipping
// packages; the assembler only folds them into totals.
type StoreInput struct {
	StoreID        uuid.UUID
	MRPTotal       Money
	Subtotal       Money
	OfferDiscount  Money
	CouponDiscount Money
	ShippingFee    Money
	PlatformFee    Money
	ExtraCharges   Money
	Donation       Money
}

// StoreSummary is the bill for a single store's order.
type StoreSummary struct {
	StoreID        uuid.UUID `json:"storeId"`
	ItemTotal      Money     `json:"itemTotal"`
	DiscountAmount Money     `json:"discountAmount"`
	CouponDiscount Money     `json:"couponDiscount"`
	ShippingFee    Money     `json:"shippingFee"`
	PlatformFee    Money     `json:"platformFee"`
	ExtraCharges   Money     `json:"extraCharges"`
	DonationAmount Money     `json:"donationAmount"`
	TotalPayable   Money     `json:"totalPayable"`
	Saved          Money     `json:"saved"`
}

// Summary aggregates every store's bill for a single checkout.
type Summary struct {
	ItemTotal      Money          `json:"itemTotal"`
	DiscountAmount Money          `json:"discountAmount"`
	CouponDiscount Money          `json:"couponDiscount"`
	ShippingFee    Money          `json:"shippingFee"`
	PlatformFee    Money          `json:"platformFee"`
	ExtraCharges   Money          `json:"extraCharges"`
	DonationAmount Money          `json:"donationAmount"`
	TotalPayable   Money          `json:"totalPayable"`
	Saved          Money          `json:"saved"`
	Stores         []StoreSummary `json:"stores,omitempty"`
}

// ComputeStore folds one store's components into its bill. Discounts are
// capped so they never exceed the item total and the payable amount is
// clamped at zero.
func ComputeStore(in StoreInput) StoreSummary {
	subtotal := ClampNonNegative(in.Subtotal)
	discount := ClampNonNegative(in.OfferDiscount)
	if discount > subtotal {
		discount = subtotal
	}
	coupon := ClampNonNegative(in.CouponDiscount)
	if coupon > subtotal-discount {
		coupon = subtotal - discount
	}
	shipping := ClampNonNegative(in.ShippingFee)
	platform := ClampNonNegative(in.PlatformFee)
	extra := ClampNonNegative(in.ExtraCharges)
	donation := ClampNonNegative(in.Donation)

	total := subtotal - discount - coupon + shipping + platform + extra + donation
	saved := discount + coupon
	if in.MRPTotal > subtotal {
		saved += in.MRPTotal - subtotal
	}
	return StoreSummary{
		StoreID:        in.StoreID,
		ItemTotal:      subtotal,
		DiscountAmount: discount,
		CouponDiscount: coupon,
		ShippingFee:    shipping,
		PlatformFee:    platform,
		ExtraCharges:   extra,
		DonationAmount: donation,
		TotalPayable:   ClampNonNegative(total),
		Saved:          saved,
	}
}

// Combine sums per-store bills into the overall checkout summary.
func Combine(stores []StoreSummary) Summary {
	var out Summary
	out.Stores = stores
	for _, s := range stores {
		out.ItemTotal += s.ItemTotal
		out.DiscountAmount += s.DiscountAmount
		out.CouponDiscount += s.CouponDiscount
		out.ShippingFee += s.ShippingFee
		out.PlatformFee += s.PlatformFee
		out.ExtraCharges += s.ExtraCharges
		out.DonationAmount += s.DonationAmount
		out.TotalPayable += s.TotalPayable
		out.Saved += s.Saved
	}
	return out
}
