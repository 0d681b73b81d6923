// Package approval implements the sequential two-tier review pipeline that
// gates payment capture: fleet-operator review first, then host review.
package approval

import (
	"strings"
	"time"

	"rentalcore/internal/booking"
	"rentalcore/internal/fault"
)

type Tier string

const (
	TierFleet Tier = "fleet"
	TierHost  Tier = "host"
)

// ApproveFleetTier clears the first review tier. It does not capture
// payment; it hands responsibility to the host tier.
func ApproveFleetTier(b *booking.Booking, notes string, now time.Time) error {
	switch b.FleetReviewStatus {
	case booking.ReviewRejected:
		return fault.InvalidState("fleet tier already rejected, rejection is terminal")
	case booking.ReviewApproved:
		return fault.InvalidState("fleet tier already approved")
	}
	if b.LifecycleStatus != booking.LifecyclePending {
		return fault.InvalidState("fleet review requires a Pending booking, got %s", b.LifecycleStatus)
	}

	b.FleetReviewStatus = booking.ReviewApproved
	b.HostReviewStatus = booking.HostReviewPending
	b.FleetReviewNotes = notes
	return nil
}

// RejectFleetTier is the terminal outcome of the first tier: the booking is
// cancelled and the payment authorization released in the same step.
func RejectFleetTier(b *booking.Booking, reason, actor string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return fault.Validation("rejection reason is required")
	}
	switch b.FleetReviewStatus {
	case booking.ReviewRejected:
		return fault.InvalidState("fleet tier already rejected")
	case booking.ReviewApproved:
		return fault.InvalidState("fleet tier already approved, use cancellation instead")
	}
	if b.LifecycleStatus != booking.LifecyclePending {
		return fault.InvalidState("fleet review requires a Pending booking, got %s", b.LifecycleStatus)
	}

	b.FleetReviewStatus = booking.ReviewRejected
	return b.Cancel(reason, actor, now)
}

// ApproveHostTier completes the pipeline. This is the one place payment
// capture happens, so a captured payment always implies both tiers approved.
func ApproveHostTier(b *booking.Booking, now time.Time) error {
	if b.FleetReviewStatus != booking.ReviewApproved {
		return fault.InvalidState("host tier requires fleet approval first, fleet tier is %s", b.FleetReviewStatus)
	}
	if b.HostReviewStatus == booking.HostReviewApproved {
		return fault.InvalidState("host tier already approved")
	}
	if b.LifecycleStatus != booking.LifecyclePending {
		return fault.InvalidState("host review requires a Pending booking, got %s", b.LifecycleStatus)
	}
	if b.PaymentStatus != booking.PaymentAuthorized {
		return fault.Precondition("payment is %s, capture requires an authorization", b.PaymentStatus)
	}

	b.HostReviewStatus = booking.HostReviewApproved
	b.PaymentStatus = booking.PaymentCaptured
	b.LifecycleStatus = booking.LifecycleConfirmed
	return nil
}
