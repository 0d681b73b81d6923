package claim

import (
	"testing"
	"time"
)

var testNow = time.Unix(1700000000, 0)

func TestRemaining_ClampsAtZero(t *testing.T) {
	deadline := testNow.Add(-time.Hour)
	if got := Remaining(deadline, testNow); got != 0 {
		t.Fatalf("expected 0 past the deadline, got %s", got)
	}
	if got := HoursRemaining(deadline, testNow); got != 0 {
		t.Fatalf("expected 0 hours, got %d", got)
	}
}

func TestHoursAndMinutesRemaining(t *testing.T) {
	deadline := testNow.Add(2*time.Hour + 30*time.Minute)
	if got := HoursRemaining(deadline, testNow); got != 2 {
		t.Fatalf("expected 2 hours, got %d", got)
	}
	if got := MinutesRemaining(deadline, testNow); got != 150 {
		t.Fatalf("expected 150 minutes, got %d", got)
	}
}

func TestExpired_DeadlineBoundary(t *testing.T) {
	deadline := testNow.Add(time.Hour)
	if Expired(deadline, deadline.Add(-time.Second)) {
		t.Fatalf("one second before the deadline is not expired")
	}
	if !Expired(deadline, deadline) {
		t.Fatalf("exactly at the deadline is expired")
	}
	if !Expired(deadline, deadline.Add(time.Second)) {
		t.Fatalf("past the deadline is expired")
	}
}

func TestIsUrgent_WithinThreshold(t *testing.T) {
	threshold := 12 * time.Hour

	deadline := testNow.Add(2 * time.Hour)
	if !IsUrgent(deadline, testNow, threshold) {
		t.Fatalf("2h remaining under a 12h threshold is urgent")
	}

	deadline = testNow.Add(13 * time.Hour)
	if IsUrgent(deadline, testNow, threshold) {
		t.Fatalf("13h remaining under a 12h threshold is not urgent")
	}

	// Expired claims leave the urgency queue, they move to the expired one.
	deadline = testNow.Add(-time.Minute)
	if IsUrgent(deadline, testNow, threshold) {
		t.Fatalf("an expired deadline is not urgent")
	}
}

func TestDeriveUrgency_HostClaimNearDeadline(t *testing.T) {
	c := &Claim{
		Status:           StatusPending,
		FiledByRole:      FiledByHost,
		NeedsResponse:    true,
		ResponseDeadline: testNow.Add(2 * time.Hour),
	}
	d := DeriveUrgency(c, testNow, 12*time.Hour)
	if d.HoursRemaining != 2 {
		t.Fatalf("expected 2 hours remaining, got %d", d.HoursRemaining)
	}
	if !d.IsUrgent {
		t.Fatalf("expected urgent")
	}
	if d.DeadlineExpired {
		t.Fatalf("not expired yet")
	}
}

func TestDeriveUrgency_ExpiredWithoutWrites(t *testing.T) {
	c := &Claim{
		Status:           StatusPending,
		FiledByRole:      FiledByHost,
		NeedsResponse:    true,
		ResponseDeadline: testNow.Add(-time.Hour),
	}
	d := DeriveUrgency(c, testNow, 12*time.Hour)
	if !d.DeadlineExpired {
		t.Fatalf("expected derived expiry")
	}
	if d.IsUrgent {
		t.Fatalf("expired claims are not urgent")
	}
	// The projection never writes back to the claim.
	if c.DeadlineExpired {
		t.Fatalf("deriving urgency must not stamp the claim")
	}
}

func TestDeriveUrgency_RespondedClaimNeverUrgent(t *testing.T) {
	c := &Claim{
		Status:           StatusUnderReview,
		FiledByRole:      FiledByHost,
		NeedsResponse:    true,
		HasResponded:     true,
		ResponseDeadline: testNow.Add(time.Hour),
	}
	d := DeriveUrgency(c, testNow, 12*time.Hour)
	if d.IsUrgent {
		t.Fatalf("a responded claim has nothing urgent left")
	}

	// Nor expired once the deadline passes, the response landed in time.
	d = DeriveUrgency(c, testNow.Add(2*time.Hour), 12*time.Hour)
	if d.DeadlineExpired {
		t.Fatalf("a responded claim does not expire")
	}
}

func TestDeriveUrgency_GuestFiledClaimNeverUrgent(t *testing.T) {
	c := &Claim{
		Status:           StatusPending,
		FiledByRole:      FiledByGuest,
		NeedsResponse:    false,
		ResponseDeadline: testNow.Add(time.Hour),
	}
	if d := DeriveUrgency(c, testNow, 12*time.Hour); d.IsUrgent {
		t.Fatalf("guest-filed claims carry no response obligation")
	}
}
