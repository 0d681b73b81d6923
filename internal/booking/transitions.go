package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rentalcore/internal/fault"
)

type CreateInput struct {
	GuestID       string
	HostID        string
	VehicleID     string
	StartDate     time.Time
	EndDate       time.Time
	TotalAmount   decimal.Decimal
	DepositAmount decimal.Decimal
	Currency      string
	RiskScore     int
}

// New builds a reservation in its initial state: payment is authorized at
// creation, both review tiers pending, capture gated on the pipeline.
func New(in CreateInput, riskFlagThreshold int, now time.Time) (*Booking, error) {
	if !in.EndDate.After(in.StartDate) {
		return nil, fault.Validation("endDate must be after startDate")
	}
	if in.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fault.Validation("totalAmount must be > 0")
	}
	if in.DepositAmount.IsNegative() {
		return nil, fault.Validation("depositAmount must be >= 0")
	}
	if in.RiskScore < 0 || in.RiskScore > 100 {
		return nil, fault.Validation("riskScore must be within 0-100")
	}

	id := uuid.NewString()
	return &Booking{
		ID:                    id,
		Code:                  codeFromID(id),
		GuestID:               in.GuestID,
		HostID:                in.HostID,
		VehicleID:             in.VehicleID,
		StartDate:             in.StartDate,
		EndDate:               in.EndDate,
		LifecycleStatus:       LifecyclePending,
		FleetReviewStatus:     ReviewPending,
		HostReviewStatus:      HostReviewPending,
		VerificationStatus:    VerificationPending,
		PaymentStatus:         PaymentAuthorized,
		TripStatus:            TripNotStarted,
		HostFinalReviewStatus: HostFinalReviewNone,
		RiskScore:             in.RiskScore,
		FlaggedForReview:      in.RiskScore >= riskFlagThreshold,
		TotalAmount:           in.TotalAmount,
		DepositAmount:         in.DepositAmount,
		Currency:              in.Currency,
		Version:               1,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

func codeFromID(id string) string {
	return "RNT-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:8])
}

// Cancel is legal from any non-terminal state. It always releases the
// payment authorization and records who pulled the plug and why.
func (b *Booking) Cancel(reason, actor string, now time.Time) error {
	if b.terminal() {
		return fault.InvalidState("booking is already %s", b.LifecycleStatus)
	}
	if strings.TrimSpace(reason) == "" {
		return fault.Validation("cancellation reason is required")
	}

	b.LifecycleStatus = LifecycleCancelled
	b.PaymentStatus = PaymentCancelled
	b.CancellationReason = reason
	b.CancelledAt = &now
	b.CancelledBy = actor
	b.Hold = nil
	return nil
}

// StartTrip moves a confirmed booking into its active window. Payment must
// already be captured, which implies both review tiers approved.
func (b *Booking) StartTrip(now time.Time) error {
	if b.LifecycleStatus != LifecycleConfirmed {
		return fault.InvalidState("trip can only start from Confirmed, booking is %s", b.LifecycleStatus)
	}
	if b.TripStatus != TripNotStarted {
		return fault.InvalidState("trip already %s", b.TripStatus)
	}
	if b.PaymentStatus != PaymentCaptured {
		return fault.Precondition("payment not captured yet")
	}

	b.LifecycleStatus = LifecycleActive
	b.TripStatus = TripInProgress
	return nil
}

func (b *Booking) EndTrip(now time.Time) error {
	if b.LifecycleStatus != LifecycleActive || b.TripStatus != TripInProgress {
		return fault.InvalidState("no trip in progress")
	}
	b.TripStatus = TripEnded
	return nil
}

// Complete closes the rental and opens the host final review window, the
// seam during which the host may still file a damage claim before the
// security deposit is released.
func (b *Booking) Complete(now time.Time) error {
	if b.LifecycleStatus != LifecycleActive {
		return fault.InvalidState("completion requires an Active booking, got %s", b.LifecycleStatus)
	}
	if b.TripStatus != TripEnded {
		return fault.Precondition("trip has not ended")
	}

	b.LifecycleStatus = LifecycleCompleted
	b.HostFinalReviewStatus = HostFinalReviewPendingReview
	return nil
}

// ReleaseDeposit ends the host final review. The caller passes whether any
// claim on this booking is still unresolved; an open claim blocks release.
func (b *Booking) ReleaseDeposit(hasOpenClaims bool, now time.Time) error {
	if b.LifecycleStatus != LifecycleCompleted {
		return fault.InvalidState("deposit release requires a Completed booking, got %s", b.LifecycleStatus)
	}
	if b.HostFinalReviewStatus != HostFinalReviewPendingReview {
		return fault.Precondition("host final review is not pending")
	}
	if hasOpenClaims {
		return fault.Precondition("booking has unresolved claims")
	}

	b.DepositReleased = true
	b.HostFinalReviewStatus = HostFinalReviewCompleted
	return nil
}

// EnterDisputeReview parks a completed booking while a claim is open.
// No-op for Active bookings; claims during the trip do not suspend it.
func (b *Booking) EnterDisputeReview() {
	if b.LifecycleStatus == LifecycleCompleted {
		b.LifecycleStatus = LifecycleDisputeReview
	}
}

// LeaveDisputeReview returns the booking to Completed once the last open
// claim is resolved.
func (b *Booking) LeaveDisputeReview() {
	if b.LifecycleStatus == LifecycleDisputeReview {
		b.LifecycleStatus = LifecycleCompleted
	}
}
