package pricing

// Money represents a monetary value stored in minor units (paise).
type Money = int64

// ApplyBps scales amount by a basis-point rate, rounding half up. Used for
// percentage offers, percentage coupons and percent extra charges so every
// component rounds once, at the point it is computed.
func ApplyBps(amount Money, bps int32) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*Money(bps) + 5000) / 10000
}

// ClampNonNegative floors the amount at zero.
func ClampNonNegative(amount Money) Money {
	if amount < 0 {
		return 0
	}
	return amount
}

// AllocateProportional splits total across the given weights using the
// largest-remainder method. The returned parts always sum to total exactly,
// which keeps a cart-wide coupon discount consistent when it is attributed
// back to per-store orders.
func AllocateProportional(total Money, weights []Money) []Money {
	parts := make([]Money, len(weights))
	if total <= 0 || len(weights) == 0 {
		return parts
	}
	var sum Money
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	if sum <= 0 {
		parts[0] = total
		return parts
	}
	type rem struct {
		idx  int
		frac Money
	}
	var allocated Money
	rems := make([]rem, 0, len(weights))
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		exact := total * w
		parts[i] = exact / sum
		allocated += parts[i]
		rems = append(rems, rem{idx: i, frac: exact % sum})
	}
	// hand out the rounding residue to the largest remainders first
	for leftover := total - allocated; leftover > 0; leftover-- {
		best := -1
		for j := range rems {
			if rems[j].frac < 0 {
				continue
			}
			if best < 0 || rems[j].frac > rems[best].frac {
				best = j
			}
		}
		if best < 0 {
			break
		}
		parts[rems[best].idx]++
		rems[best].frac = -1
	}
	return parts
}
