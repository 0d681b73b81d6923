package booking

import "fmt"

type LifecycleStatus string

const (
	LifecyclePending       LifecycleStatus = "Pending"
	LifecycleConfirmed     LifecycleStatus = "Confirmed"
	LifecycleActive        LifecycleStatus = "Active"
	LifecycleOnHold        LifecycleStatus = "OnHold"
	LifecycleCompleted     LifecycleStatus = "Completed"
	LifecycleCancelled     LifecycleStatus = "Cancelled"
	LifecycleDisputeReview LifecycleStatus = "DisputeReview"
)

func ParseLifecycleStatus(s string) (LifecycleStatus, error) {
	switch LifecycleStatus(s) {
	case LifecyclePending, LifecycleConfirmed, LifecycleActive, LifecycleOnHold,
		LifecycleCompleted, LifecycleCancelled, LifecycleDisputeReview:
		return LifecycleStatus(s), nil
	default:
		return "", fmt.Errorf("unknown lifecycle status: %s", s)
	}
}

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "Pending"
	ReviewApproved ReviewStatus = "Approved"
	ReviewRejected ReviewStatus = "Rejected"
)

type HostReviewStatus string

const (
	HostReviewPending  HostReviewStatus = "Pending"
	HostReviewApproved HostReviewStatus = "Approved"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "Pending"
	VerificationApproved VerificationStatus = "Approved"
	VerificationRejected VerificationStatus = "Rejected"
)

type PaymentStatus string

const (
	PaymentAuthorized PaymentStatus = "Authorized"
	PaymentCaptured   PaymentStatus = "Captured"
	PaymentCancelled  PaymentStatus = "Cancelled"
)

type TripStatus string

const (
	TripNotStarted TripStatus = "NotStarted"
	TripInProgress TripStatus = "InProgress"
	TripEnded      TripStatus = "Ended"
)

type HostFinalReviewStatus string

const (
	HostFinalReviewNone          HostFinalReviewStatus = "None"
	HostFinalReviewPendingReview HostFinalReviewStatus = "PendingReview"
	HostFinalReviewCompleted     HostFinalReviewStatus = "Completed"
)

// allowedTransitions enumerates the legal lifecycle moves. Guards on the
// individual operations add the cross-dimension checks (payment, trip,
// review tiers) on top of this table.
var allowedTransitions = map[LifecycleStatus]map[LifecycleStatus]bool{
	LifecyclePending:   {LifecycleConfirmed: true, LifecycleCancelled: true},
	LifecycleConfirmed: {LifecycleOnHold: true, LifecycleActive: true, LifecycleCancelled: true},
	// OnHold restores to the recorded prior status on release.
	LifecycleOnHold:        {LifecycleConfirmed: true, LifecycleActive: true, LifecycleCancelled: true},
	LifecycleActive:        {LifecycleCompleted: true, LifecycleCancelled: true},
	LifecycleCompleted:     {LifecycleDisputeReview: true},
	LifecycleDisputeReview: {LifecycleCompleted: true, LifecycleCancelled: true},
	LifecycleCancelled:     {},
}

func CanTransition(from, to LifecycleStatus) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}
