package approval

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"rentalcore/internal/booking"
	"rentalcore/internal/fault"
)

var testNow = time.Unix(1700000000, 0)

func newPending(t *testing.T) *booking.Booking {
	t.Helper()
	b, err := booking.New(booking.CreateInput{
		GuestID:       "guest-1",
		HostID:        "host-1",
		VehicleID:     "veh-1",
		StartDate:     testNow.Add(24 * time.Hour),
		EndDate:       testNow.Add(72 * time.Hour),
		TotalAmount:   decimal.RequireFromString("180.00"),
		DepositAmount: decimal.RequireFromString("400.00"),
		Currency:      "USD",
		RiskScore:     10,
	}, 75, testNow)
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	return b
}

func TestPipeline_FleetThenHostCapturesPayment(t *testing.T) {
	b := newPending(t)

	if err := ApproveFleetTier(b, "docs look good", testNow); err != nil {
		t.Fatalf("fleet approve: %v", err)
	}
	if b.PaymentStatus != booking.PaymentAuthorized {
		t.Fatalf("fleet approval must not capture payment, got %s", b.PaymentStatus)
	}
	if b.LifecycleStatus != booking.LifecyclePending {
		t.Fatalf("booking stays Pending until host approves, got %s", b.LifecycleStatus)
	}
	if b.FleetReviewNotes != "docs look good" {
		t.Fatalf("review notes not recorded")
	}

	if err := ApproveHostTier(b, testNow); err != nil {
		t.Fatalf("host approve: %v", err)
	}
	if b.PaymentStatus != booking.PaymentCaptured {
		t.Fatalf("host approval is the capture point, got %s", b.PaymentStatus)
	}
	if b.LifecycleStatus != booking.LifecycleConfirmed {
		t.Fatalf("expected Confirmed, got %s", b.LifecycleStatus)
	}
}

func TestApproveHostTier_BeforeFleetRejected(t *testing.T) {
	b := newPending(t)
	err := ApproveHostTier(b, testNow)
	fe, ok := fault.As(err)
	if !ok || fe.Code != fault.CodeInvalidStateTransition {
		t.Fatalf("expected INVALID_STATE_TRANSITION, got %v", err)
	}
	if b.PaymentStatus != booking.PaymentAuthorized {
		t.Fatalf("payment must stay authorized, got %s", b.PaymentStatus)
	}
	if b.HostReviewStatus != booking.HostReviewPending {
		t.Fatalf("host tier must stay pending")
	}
}

func TestApproveFleetTier_Idempotency(t *testing.T) {
	b := newPending(t)
	if err := ApproveFleetTier(b, "", testNow); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if err := ApproveFleetTier(b, "", testNow); !isCode(err, fault.CodeInvalidStateTransition) {
		t.Fatalf("expected invalid state on double approve, got %v", err)
	}
}

func TestRejectFleetTier_TerminalAndReleasesPayment(t *testing.T) {
	b := newPending(t)
	if err := RejectFleetTier(b, "license mismatch", "fleet-1", testNow); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if b.FleetReviewStatus != booking.ReviewRejected {
		t.Fatalf("expected Rejected, got %s", b.FleetReviewStatus)
	}
	if b.LifecycleStatus != booking.LifecycleCancelled {
		t.Fatalf("rejection cancels the booking, got %s", b.LifecycleStatus)
	}
	if b.PaymentStatus != booking.PaymentCancelled {
		t.Fatalf("rejection releases the authorization, got %s", b.PaymentStatus)
	}
	if b.CancellationReason != "license mismatch" {
		t.Fatalf("rejection reason not recorded as cancellation reason")
	}

	// Rejection is terminal: neither tier can run again.
	if err := ApproveFleetTier(b, "", testNow); !isCode(err, fault.CodeInvalidStateTransition) {
		t.Fatalf("expected invalid state approving a rejected booking, got %v", err)
	}
	if err := ApproveHostTier(b, testNow); !isCode(err, fault.CodeInvalidStateTransition) {
		t.Fatalf("expected invalid state host-approving a rejected booking, got %v", err)
	}
	if err := RejectFleetTier(b, "again", "fleet-1", testNow); !isCode(err, fault.CodeInvalidStateTransition) {
		t.Fatalf("expected invalid state on double reject, got %v", err)
	}
}

func TestRejectFleetTier_RequiresReason(t *testing.T) {
	b := newPending(t)
	if err := RejectFleetTier(b, "   ", "fleet-1", testNow); !isCode(err, fault.CodeValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if b.FleetReviewStatus != booking.ReviewPending {
		t.Fatalf("failed reject must not mutate")
	}
}

func TestRejectFleetTier_AfterApprovalRejected(t *testing.T) {
	b := newPending(t)
	_ = ApproveFleetTier(b, "", testNow)
	if err := RejectFleetTier(b, "changed my mind", "fleet-1", testNow); !isCode(err, fault.CodeInvalidStateTransition) {
		t.Fatalf("expected invalid state, approved tier cannot flip to rejected, got %v", err)
	}
}

func TestApproveHostTier_CancelledBookingRejected(t *testing.T) {
	b := newPending(t)
	_ = ApproveFleetTier(b, "", testNow)
	if err := b.Cancel("guest backed out", "guest-1", testNow); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := ApproveHostTier(b, testNow); !isCode(err, fault.CodeInvalidStateTransition) {
		t.Fatalf("expected invalid state on cancelled booking, got %v", err)
	}
}

func isCode(err error, code fault.Code) bool {
	fe, ok := fault.As(err)
	return ok && fe.Code == code
}
