package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking is the single source of truth for one rental. Every status
// dimension lives here; no component caches these across calls.
type Booking struct {
	ID   string `json:"id"`
	Code string `json:"code"`

	GuestID   string `json:"guestId"`
	HostID    string `json:"hostId"`
	VehicleID string `json:"vehicleId"`

	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`

	LifecycleStatus       LifecycleStatus       `json:"lifecycleStatus"`
	FleetReviewStatus     ReviewStatus          `json:"fleetReviewStatus"`
	HostReviewStatus      HostReviewStatus      `json:"hostReviewStatus"`
	VerificationStatus    VerificationStatus    `json:"verificationStatus"`
	PaymentStatus         PaymentStatus         `json:"paymentStatus"`
	TripStatus            TripStatus            `json:"tripStatus"`
	HostFinalReviewStatus HostFinalReviewStatus `json:"hostFinalReviewStatus"`

	// Hold is present iff LifecycleStatus is OnHold.
	Hold *HoldState `json:"hold,omitempty"`

	RiskScore        int  `json:"riskScore"`
	FlaggedForReview bool `json:"flaggedForReview"`

	TotalAmount     decimal.Decimal `json:"totalAmount"`
	DepositAmount   decimal.Decimal `json:"depositAmount"`
	Currency        string          `json:"currency"`
	DepositReleased bool            `json:"depositReleased"`

	FleetReviewNotes string `json:"fleetReviewNotes,omitempty"`

	CancellationReason string     `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancelledBy        string     `json:"cancelledBy,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HoldState records how to undo a verification hold. PriorStatus is the
// lifecycle status restored on release.
type HoldState struct {
	Reason        string          `json:"reason"`
	SetAt         time.Time       `json:"setAt"`
	SetBy         string          `json:"setBy"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	Message       string          `json:"message,omitempty"`
	DocumentTypes []string        `json:"documentTypes"`
	PriorStatus   LifecycleStatus `json:"priorStatus"`
}

func (b *Booking) terminal() bool {
	return b.LifecycleStatus == LifecycleCompleted || b.LifecycleStatus == LifecycleCancelled
}

// HoldDerived is the read-time urgency projection over the advisory hold
// deadline, computed per read and never persisted.
type HoldDerived struct {
	Overdue          bool `json:"overdue"`
	HoursRemaining   int  `json:"hoursRemaining"`
	MinutesRemaining int  `json:"minutesRemaining"`
}

// Derive projects deadline urgency at read time. A hold without a deadline
// is never overdue.
func (h *HoldState) Derive(now time.Time) HoldDerived {
	var d HoldDerived
	if h.Deadline == nil {
		return d
	}
	rem := h.Deadline.Sub(now)
	if rem < 0 {
		rem = 0
	}
	d.HoursRemaining = int(rem / time.Hour)
	d.MinutesRemaining = int(rem / time.Minute)
	d.Overdue = now.After(*h.Deadline)
	return d
}
