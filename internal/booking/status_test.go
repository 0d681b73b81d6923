package booking

import "testing"

func TestCanTransition_PendingPaths(t *testing.T) {
	if !CanTransition(LifecyclePending, LifecycleConfirmed) {
		t.Fatalf("Pending -> Confirmed should be allowed")
	}
	if !CanTransition(LifecyclePending, LifecycleCancelled) {
		t.Fatalf("Pending -> Cancelled should be allowed")
	}
	if CanTransition(LifecyclePending, LifecycleActive) {
		t.Fatalf("Pending -> Active must go through Confirmed")
	}
	if CanTransition(LifecyclePending, LifecycleCompleted) {
		t.Fatalf("Pending -> Completed should be rejected")
	}
}

func TestCanTransition_CancelledIsTerminal(t *testing.T) {
	for _, to := range []LifecycleStatus{
		LifecyclePending, LifecycleConfirmed, LifecycleActive,
		LifecycleOnHold, LifecycleCompleted, LifecycleDisputeReview,
	} {
		if CanTransition(LifecycleCancelled, to) {
			t.Fatalf("Cancelled -> %s should be rejected", to)
		}
	}
}

func TestCanTransition_DisputeReviewRoundTrip(t *testing.T) {
	if !CanTransition(LifecycleCompleted, LifecycleDisputeReview) {
		t.Fatalf("Completed -> DisputeReview should be allowed")
	}
	if !CanTransition(LifecycleDisputeReview, LifecycleCompleted) {
		t.Fatalf("DisputeReview -> Completed should be allowed")
	}
	if !CanTransition(LifecycleDisputeReview, LifecycleCancelled) {
		t.Fatalf("DisputeReview -> Cancelled should be allowed")
	}
	if CanTransition(LifecycleCompleted, LifecycleActive) {
		t.Fatalf("Completed -> Active should be rejected")
	}
}

func TestParseLifecycleStatus_Unknown(t *testing.T) {
	if _, err := ParseLifecycleStatus("Archived"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	st, err := ParseLifecycleStatus("OnHold")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != LifecycleOnHold {
		t.Fatalf("expected OnHold, got %s", st)
	}
}
