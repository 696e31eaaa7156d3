package order

// Order lifecycle statuses. The forward chain is linear; Rejected is only
// reachable from Pending, and Cancelled from any non-terminal status.
const (
	StatusPending        = "Pending"
	StatusAccepted       = "Accepted"
	StatusShipped        = "Product shipped"
	StatusOnTheWay       = "On the way"
	StatusOutForDelivery = "Out for delivery"
	StatusDestination    = "Your Destination"
	StatusDelivered      = "Delivered"
	StatusRejected       = "Rejected"
	StatusCancelled      = "Cancelled"
)

var forwardChain = []string{
	StatusPending,
	StatusAccepted,
	StatusShipped,
	StatusOnTheWay,
	StatusOutForDelivery,
	StatusDestination,
	StatusDelivered,
}

func rank(status string) int {
	for i, s := range forwardChain {
		if s == status {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether no further transition is allowed.
func IsTerminal(status string) bool {
	return status == StatusDelivered || status == StatusRejected || status == StatusCancelled
}

// IsValidStatus reports whether the value is a known lifecycle status.
func IsValidStatus(status string) bool {
	return rank(status) >= 0 || status == StatusRejected || status == StatusCancelled
}

// CanTransition reports whether an order may move from one status to the
// next. Forward moves advance exactly one step along the chain.
func CanTransition(from, to string) bool {
	if IsTerminal(from) {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	if to == StatusRejected {
		return from == StatusPending
	}
	fromRank, toRank := rank(from), rank(to)
	if fromRank < 0 || toRank < 0 {
		return false
	}
	return toRank == fromRank+1
}
