package order

import "testing"

func TestForwardChainAdvancesOneStep(t *testing.T) {
	steps := []struct{ from, to string }{
		{StatusPending, StatusAccepted},
		{StatusAccepted, StatusShipped},
		{StatusShipped, StatusOnTheWay},
		{StatusOnTheWay, StatusOutForDelivery},
		{StatusOutForDelivery, StatusDestination},
		{StatusDestination, StatusDelivered},
	}
	for _, s := range steps {
		if !CanTransition(s.from, s.to) {
			t.Fatalf("expected %q -> %q to be allowed", s.from, s.to)
		}
	}
}

func TestNoSkippingOrBacktracking(t *testing.T) {
	if CanTransition(StatusPending, StatusShipped) {
		t.Fatal("skipping a step must not be allowed")
	}
	if CanTransition(StatusShipped, StatusAccepted) {
		t.Fatal("backtracking must not be allowed")
	}
	if CanTransition(StatusAccepted, StatusAccepted) {
		t.Fatal("self transition must not be allowed")
	}
}

func TestRejectedOnlyFromPending(t *testing.T) {
	if !CanTransition(StatusPending, StatusRejected) {
		t.Fatal("Pending -> Rejected must be allowed")
	}
	if CanTransition(StatusAccepted, StatusRejected) {
		t.Fatal("Rejected is only reachable from Pending")
	}
}

func TestCancelledFromAnyNonTerminal(t *testing.T) {
	for _, from := range []string{StatusPending, StatusAccepted, StatusShipped, StatusOutForDelivery} {
		if !CanTransition(from, StatusCancelled) {
			t.Fatalf("expected %q -> Cancelled to be allowed", from)
		}
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	for _, from := range []string{StatusDelivered, StatusRejected, StatusCancelled} {
		for _, to := range []string{StatusAccepted, StatusCancelled, StatusPending} {
			if CanTransition(from, to) {
				t.Fatalf("expected %q -> %q to be rejected", from, to)
			}
		}
	}
}
