package hold

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"rentalcore/internal/booking"
	"rentalcore/internal/fault"
)

var testNow = time.Unix(1700000000, 0)

func newConfirmed(t *testing.T) *booking.Booking {
	t.Helper()
	b, err := booking.New(booking.CreateInput{
		GuestID:       "guest-1",
		HostID:        "host-1",
		VehicleID:     "veh-1",
		StartDate:     testNow.Add(24 * time.Hour),
		EndDate:       testNow.Add(72 * time.Hour),
		TotalAmount:   decimal.RequireFromString("150.00"),
		DepositAmount: decimal.RequireFromString("300.00"),
		Currency:      "USD",
	}, 75, testNow)
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	b.LifecycleStatus = booking.LifecycleConfirmed
	b.FleetReviewStatus = booking.ReviewApproved
	b.HostReviewStatus = booking.HostReviewApproved
	b.PaymentStatus = booking.PaymentCaptured
	return b
}

func TestRequestDocuments_RoundTrip(t *testing.T) {
	b := newConfirmed(t)
	deadline := testNow.Add(48 * time.Hour)

	err := RequestDocuments(b, Request{
		Reason:        "license expired",
		DocumentTypes: []string{"drivers_license"},
		Deadline:      &deadline,
		Message:       "please upload a current license",
		SetBy:         "fleet-1",
	}, testNow)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if b.LifecycleStatus != booking.LifecycleOnHold {
		t.Fatalf("expected OnHold, got %s", b.LifecycleStatus)
	}
	if b.VerificationStatus != booking.VerificationPending {
		t.Fatalf("expected verification Pending, got %s", b.VerificationStatus)
	}
	if b.Hold == nil || b.Hold.PriorStatus != booking.LifecycleConfirmed {
		t.Fatalf("prior status not recorded")
	}

	if err := Release(b, testNow.Add(time.Hour)); err != nil {
		t.Fatalf("release: %v", err)
	}
	if b.LifecycleStatus != booking.LifecycleConfirmed {
		t.Fatalf("release must restore the pre-hold status, got %s", b.LifecycleStatus)
	}
	if b.Hold != nil {
		t.Fatalf("hold state should be cleared")
	}
	if b.VerificationStatus != booking.VerificationApproved {
		t.Fatalf("expected verification Approved, got %s", b.VerificationStatus)
	}
}

func TestRequestDocuments_ExtendPreservesPriorStatus(t *testing.T) {
	b := newConfirmed(t)
	if err := RequestDocuments(b, Request{
		Reason:        "license expired",
		DocumentTypes: []string{"drivers_license"},
		SetBy:         "fleet-1",
	}, testNow); err != nil {
		t.Fatalf("first request: %v", err)
	}

	later := testNow.Add(2 * time.Hour)
	deadline := later.Add(24 * time.Hour)
	if err := RequestDocuments(b, Request{
		Reason:        "also need insurance proof",
		DocumentTypes: []string{"drivers_license", "insurance"},
		Deadline:      &deadline,
		SetBy:         "fleet-2",
	}, later); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if b.LifecycleStatus != booking.LifecycleOnHold {
		t.Fatalf("extension keeps the booking OnHold")
	}
	if b.Hold.PriorStatus != booking.LifecycleConfirmed {
		t.Fatalf("extension must not overwrite the recorded prior status")
	}
	if len(b.Hold.DocumentTypes) != 2 || b.Hold.SetBy != "fleet-2" {
		t.Fatalf("extension did not update the request in place")
	}

	if err := Release(b, later.Add(time.Hour)); err != nil {
		t.Fatalf("release: %v", err)
	}
	if b.LifecycleStatus != booking.LifecycleConfirmed {
		t.Fatalf("expected Confirmed after release, got %s", b.LifecycleStatus)
	}
}

func TestRequestDocuments_Validation(t *testing.T) {
	b := newConfirmed(t)
	if err := RequestDocuments(b, Request{Reason: "r"}, testNow); !isCode(err, fault.CodeValidationFailed) {
		t.Fatalf("expected validation error for empty documentTypes, got %v", err)
	}

	past := testNow.Add(-time.Hour)
	err := RequestDocuments(b, Request{
		Reason:        "r",
		DocumentTypes: []string{"drivers_license"},
		Deadline:      &past,
	}, testNow)
	if !isCode(err, fault.CodeValidationFailed) {
		t.Fatalf("expected validation error for past deadline, got %v", err)
	}
	if b.LifecycleStatus != booking.LifecycleConfirmed {
		t.Fatalf("failed request must not mutate, got %s", b.LifecycleStatus)
	}
}

func TestRequestDocuments_WrongState(t *testing.T) {
	b := newConfirmed(t)
	b.LifecycleStatus = booking.LifecycleActive
	b.TripStatus = booking.TripInProgress
	err := RequestDocuments(b, Request{
		Reason:        "r",
		DocumentTypes: []string{"drivers_license"},
	}, testNow)
	if !isCode(err, fault.CodeInvalidStateTransition) {
		t.Fatalf("expected invalid state for Active booking, got %v", err)
	}
}

func TestRelease_NotOnHold(t *testing.T) {
	b := newConfirmed(t)
	if err := Release(b, testNow); !isCode(err, fault.CodePreconditionNotMet) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func isCode(err error, code fault.Code) bool {
	fe, ok := fault.As(err)
	return ok && fe.Code == code
}
