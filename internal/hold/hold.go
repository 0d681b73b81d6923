// Package hold implements the identity-verification workflow that can
// suspend an otherwise-confirmed booking until documents are reviewed.
package hold

import (
	"time"

	"rentalcore/internal/booking"
	"rentalcore/internal/fault"
)

type Request struct {
	Reason        string
	DocumentTypes []string
	Deadline      *time.Time
	Message       string
	SetBy         string
}

// RequestDocuments places (or extends) a verification hold. Legal from
// Confirmed, or from OnHold to idempotently extend the existing request;
// the prior status recorded on first entry is never overwritten.
func RequestDocuments(b *booking.Booking, req Request, now time.Time) error {
	if len(req.DocumentTypes) == 0 {
		return fault.Validation("at least one document type is required")
	}
	if req.Deadline != nil && !req.Deadline.After(now) {
		return fault.Validation("deadline must be in the future")
	}

	switch b.LifecycleStatus {
	case booking.LifecycleOnHold:
		// Extend the open request in place.
		b.Hold.Reason = req.Reason
		b.Hold.DocumentTypes = req.DocumentTypes
		b.Hold.Deadline = req.Deadline
		b.Hold.Message = req.Message
		b.Hold.SetAt = now
		b.Hold.SetBy = req.SetBy
		b.VerificationStatus = booking.VerificationPending
		return nil
	case booking.LifecycleConfirmed:
		b.Hold = &booking.HoldState{
			Reason:        req.Reason,
			SetAt:         now,
			SetBy:         req.SetBy,
			Deadline:      req.Deadline,
			Message:       req.Message,
			DocumentTypes: req.DocumentTypes,
			PriorStatus:   b.LifecycleStatus,
		}
		b.LifecycleStatus = booking.LifecycleOnHold
		b.VerificationStatus = booking.VerificationPending
		return nil
	default:
		return fault.InvalidState("verification hold requires a Confirmed booking, got %s", b.LifecycleStatus)
	}
}

// Release lifts the hold and restores the pre-hold lifecycle status.
// Confirmed is the fallback when no prior status was recorded.
func Release(b *booking.Booking, now time.Time) error {
	if b.LifecycleStatus != booking.LifecycleOnHold {
		return fault.Precondition("booking is not on hold")
	}

	restored := booking.LifecycleConfirmed
	if b.Hold != nil && b.Hold.PriorStatus != "" {
		restored = b.Hold.PriorStatus
	}
	b.LifecycleStatus = restored
	b.Hold = nil
	b.VerificationStatus = booking.VerificationApproved
	return nil
}
