package claim

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"rentalcore/internal/booking"
	"rentalcore/internal/fault"
)

const (
	testResponseWindow = 48 * time.Hour
	testMinChars       = 100
)

func completedBooking(t *testing.T) *booking.Booking {
	t.Helper()
	b, err := booking.New(booking.CreateInput{
		GuestID:       "guest-1",
		HostID:        "host-1",
		VehicleID:     "veh-1",
		StartDate:     testNow.Add(-72 * time.Hour),
		EndDate:       testNow.Add(-24 * time.Hour),
		TotalAmount:   decimal.RequireFromString("200.00"),
		DepositAmount: decimal.RequireFromString("500.00"),
		Currency:      "USD",
	}, 75, testNow.Add(-96*time.Hour))
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	b.LifecycleStatus = booking.LifecycleCompleted
	b.FleetReviewStatus = booking.ReviewApproved
	b.HostReviewStatus = booking.HostReviewApproved
	b.PaymentStatus = booking.PaymentCaptured
	b.TripStatus = booking.TripEnded
	b.HostFinalReviewStatus = booking.HostFinalReviewPendingReview
	return b
}

func hostClaim(t *testing.T) *Claim {
	t.Helper()
	c, err := File(completedBooking(t), FileInput{
		FiledByRole:   FiledByHost,
		Type:          "damage",
		Description:   "scratch along the rear passenger door",
		EstimatedCost: decimal.RequireFromString("350.00"),
	}, testResponseWindow, testNow)
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	return c
}

func longResponse() string {
	return strings.Repeat("the scratch was present at pickup, ", 4) // 140 chars
}

func TestFile_HostClaimOpensResponseWindow(t *testing.T) {
	c := hostClaim(t)
	if c.Status != StatusPending {
		t.Fatalf("expected Pending, got %s", c.Status)
	}
	if !c.NeedsResponse {
		t.Fatalf("host-filed claims require a guest response")
	}
	if !c.AccountHoldApplied {
		t.Fatalf("host-filed claims hold the guest account")
	}
	if !c.ResponseDeadline.Equal(testNow.Add(testResponseWindow)) {
		t.Fatalf("deadline should be filing time plus the policy window, got %s", c.ResponseDeadline)
	}
	if c.ResponseToken == "" {
		t.Fatalf("portal token not issued")
	}
	if len(c.Code) != 12 || c.Code[:4] != "CLM-" {
		t.Fatalf("unexpected code format: %q", c.Code)
	}
}

func TestFile_GuestClaimNeedsNoResponse(t *testing.T) {
	c, err := File(completedBooking(t), FileInput{
		FiledByRole:   FiledByGuest,
		Type:          "pre_existing_damage",
		Description:   "dent was there before pickup",
		EstimatedCost: decimal.Zero,
	}, testResponseWindow, testNow)
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if c.NeedsResponse || c.AccountHoldApplied {
		t.Fatalf("guest-filed claims carry no response obligation or account hold")
	}
}

func TestFile_BookingStateGate(t *testing.T) {
	b := completedBooking(t)
	b.LifecycleStatus = booking.LifecycleConfirmed
	_, err := File(b, FileInput{
		FiledByRole: FiledByHost,
		Type:        "damage",
		Description: "d",
	}, testResponseWindow, testNow)
	if !isCode(err, fault.CodeInvalidStateTransition) {
		t.Fatalf("expected invalid state before the trip, got %v", err)
	}

	b.LifecycleStatus = booking.LifecycleActive
	if _, err := File(b, FileInput{
		FiledByRole: FiledByHost,
		Type:        "damage",
		Description: "windshield chip noticed mid-trip",
	}, testResponseWindow, testNow); err != nil {
		t.Fatalf("filing during an active trip should succeed: %v", err)
	}
}

func TestFile_Validation(t *testing.T) {
	b := completedBooking(t)
	if _, err := File(b, FileInput{FiledByRole: "Admin", Description: "d"}, testResponseWindow, testNow); !isCode(err, fault.CodeValidationFailed) {
		t.Fatalf("expected validation error for filer role, got %v", err)
	}
	if _, err := File(b, FileInput{FiledByRole: FiledByHost, Description: "  "}, testResponseWindow, testNow); !isCode(err, fault.CodeValidationFailed) {
		t.Fatalf("expected validation error for empty description, got %v", err)
	}
	if _, err := File(b, FileInput{
		FiledByRole:   FiledByHost,
		Description:   "d",
		EstimatedCost: decimal.RequireFromString("-1"),
	}, testResponseWindow, testNow); !isCode(err, fault.CodeValidationFailed) {
		t.Fatalf("expected validation error for negative cost, got %v", err)
	}
}

func TestSubmitResponse_InsideWindow(t *testing.T) {
	c := hostClaim(t)
	at := testNow.Add(time.Hour)
	if err := c.SubmitResponse(longResponse(), []string{"photo-1"}, testMinChars, at); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if !c.HasResponded {
		t.Fatalf("expected hasResponded")
	}
	if c.Status != StatusUnderReview {
		t.Fatalf("a response moves the claim to UnderReview, got %s", c.Status)
	}
	if c.AccountHoldApplied {
		t.Fatalf("responding lifts the account hold")
	}
	if c.GuestResponseDate == nil || !c.GuestResponseDate.Equal(at) {
		t.Fatalf("response date not recorded")
	}
}

func TestSubmitResponse_AfterDeadlineRejected(t *testing.T) {
	c := hostClaim(t)
	late := c.ResponseDeadline.Add(time.Minute)
	err := c.SubmitResponse(longResponse(), nil, testMinChars, late)
	if !isCode(err, fault.CodePreconditionNotMet) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if c.HasResponded {
		t.Fatalf("a rejected response must not mark the claim responded")
	}
	if c.Status != StatusPending {
		t.Fatalf("claim state must not change, got %s", c.Status)
	}
}

func TestSubmitResponse_ContentFloor(t *testing.T) {
	c := hostClaim(t)
	err := c.SubmitResponse("too short", nil, testMinChars, testNow.Add(time.Hour))
	if !isCode(err, fault.CodeValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// Whitespace does not count toward the floor.
	padded := "short " + strings.Repeat(" ", 200)
	if err := c.SubmitResponse(padded, nil, testMinChars, testNow.Add(time.Hour)); !isCode(err, fault.CodeValidationFailed) {
		t.Fatalf("expected validation error for padded text, got %v", err)
	}
}

func TestSubmitResponse_OnlyOnce(t *testing.T) {
	c := hostClaim(t)
	if err := c.SubmitResponse(longResponse(), nil, testMinChars, testNow.Add(time.Hour)); err != nil {
		t.Fatalf("first response: %v", err)
	}
	err := c.SubmitResponse(longResponse(), nil, testMinChars, testNow.Add(2*time.Hour))
	if !isCode(err, fault.CodePreconditionNotMet) {
		t.Fatalf("expected precondition error on second response, got %v", err)
	}
}

func TestResolve_BlockedWhileWindowOpen(t *testing.T) {
	c := hostClaim(t)
	amount := decimal.RequireFromString("300.00")
	err := c.Resolve(Resolution{
		Outcome:        StatusApproved,
		ApprovedAmount: &amount,
		ResolvedBy:     "fleet-1",
	}, testNow.Add(time.Hour))
	if !isCode(err, fault.CodePreconditionNotMet) {
		t.Fatalf("expected precondition error while the guest can still respond, got %v", err)
	}
	if c.Resolved() {
		t.Fatalf("claim must stay open")
	}
}

func TestResolve_AfterResponse(t *testing.T) {
	c := hostClaim(t)
	if err := c.SubmitResponse(longResponse(), nil, testMinChars, testNow.Add(time.Hour)); err != nil {
		t.Fatalf("respond: %v", err)
	}

	amount := decimal.RequireFromString("275.00")
	deductible := decimal.RequireFromString("50.00")
	at := testNow.Add(3 * time.Hour)
	err := c.Resolve(Resolution{
		Outcome:        StatusApproved,
		ApprovedAmount: &amount,
		Deductible:     &deductible,
		FaultParty:     "guest",
		Notes:          "photos support partial damage",
		ResolvedBy:     "fleet-1",
	}, at)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c.Status != StatusApproved {
		t.Fatalf("expected Approved, got %s", c.Status)
	}
	if c.ApprovedAmount == nil || !c.ApprovedAmount.Equal(amount) {
		t.Fatalf("approved amount not recorded")
	}
	if !c.Deductible.Equal(deductible) {
		t.Fatalf("deductible not recorded")
	}
	if c.ResolvedAt == nil || !c.ResolvedAt.Equal(at) || c.ResolvedBy != "fleet-1" {
		t.Fatalf("resolution audit fields not recorded")
	}
	if c.AccountHoldApplied {
		t.Fatalf("resolution clears the account hold")
	}
}

func TestResolve_AfterExpiryWithoutResponse(t *testing.T) {
	c := hostClaim(t)
	after := c.ResponseDeadline.Add(time.Hour)
	err := c.Resolve(Resolution{
		Outcome:    StatusDenied,
		Notes:      "no response within the window",
		ResolvedBy: "fleet-1",
	}, after)
	if err != nil {
		t.Fatalf("resolve after expiry: %v", err)
	}
	if c.Status != StatusDenied {
		t.Fatalf("expected Denied, got %s", c.Status)
	}
	if c.HasResponded {
		t.Fatalf("no response was ever recorded")
	}
}

func TestResolve_GuestFiledNeedsNoWait(t *testing.T) {
	c, err := File(completedBooking(t), FileInput{
		FiledByRole: FiledByGuest,
		Type:        "pre_existing_damage",
		Description: "dent was there before pickup",
	}, testResponseWindow, testNow)
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	// The filer owes no response to themselves; operators may act at once.
	if err := c.Resolve(Resolution{
		Outcome:    StatusDenied,
		Notes:      "checkout photos show no dent",
		ResolvedBy: "fleet-1",
	}, testNow.Add(time.Hour)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
}

func TestResolve_Guards(t *testing.T) {
	c := hostClaim(t)
	after := c.ResponseDeadline.Add(time.Hour)

	if err := c.Resolve(Resolution{Outcome: StatusPending}, after); !isCode(err, fault.CodeValidationFailed) {
		t.Fatalf("expected validation error for outcome, got %v", err)
	}
	if err := c.Resolve(Resolution{Outcome: StatusApproved}, after); !isCode(err, fault.CodeValidationFailed) {
		t.Fatalf("expected validation error approving without an amount, got %v", err)
	}

	if err := c.Resolve(Resolution{Outcome: StatusDenied, ResolvedBy: "fleet-1"}, after); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := c.Resolve(Resolution{Outcome: StatusDenied, ResolvedBy: "fleet-1"}, after); !isCode(err, fault.CodeInvalidStateTransition) {
		t.Fatalf("expected invalid state on double resolution, got %v", err)
	}
}

func TestMarkExpired_LiftsAccountHold(t *testing.T) {
	c := hostClaim(t)
	if !c.AccountHoldApplied {
		t.Fatalf("host-filed claims start with the account hold")
	}

	if !c.MarkExpired(c.ResponseDeadline.Add(time.Hour)) {
		t.Fatalf("expected expiry stamp")
	}
	if !c.DeadlineExpired {
		t.Fatalf("expected deadline stamped")
	}
	// A lapsed window escalates to an operator; the hold lifts with it.
	if c.AccountHoldApplied {
		t.Fatalf("account hold must lift once the window lapses unanswered")
	}
	if c.Resolved() {
		t.Fatalf("expiry never resolves the claim by itself")
	}
}

func TestMarkExpired_Idempotent(t *testing.T) {
	c := hostClaim(t)

	if c.MarkExpired(testNow.Add(time.Hour)) {
		t.Fatalf("window still open, nothing to stamp")
	}

	after := c.ResponseDeadline.Add(time.Minute)
	if !c.MarkExpired(after) {
		t.Fatalf("expected first stamp to apply")
	}
	if !c.DeadlineExpired {
		t.Fatalf("expected expiry stamp")
	}
	if c.MarkExpired(after) {
		t.Fatalf("second stamp is a no-op")
	}
}

func TestMarkExpired_SkipsRespondedAndResolved(t *testing.T) {
	c := hostClaim(t)
	_ = c.SubmitResponse(longResponse(), nil, testMinChars, testNow.Add(time.Hour))
	if c.MarkExpired(c.ResponseDeadline.Add(time.Hour)) {
		t.Fatalf("responded claims never expire")
	}

	c2 := hostClaim(t)
	_ = c2.Resolve(Resolution{Outcome: StatusDenied, ResolvedBy: "fleet-1"}, c2.ResponseDeadline.Add(time.Hour))
	if c2.MarkExpired(c2.ResponseDeadline.Add(2 * time.Hour)) {
		t.Fatalf("resolved claims never expire")
	}
}

func isCode(err error, code fault.Code) bool {
	fe, ok := fault.As(err)
	return ok && fe.Code == code
}
