// Package claim implements post-trip damage reporting: a bounded guest
// response window, derived urgency, and operator-only resolution.
package claim

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rentalcore/internal/booking"
	"rentalcore/internal/fault"
)

type Status string

const (
	StatusPending     Status = "Pending"
	StatusUnderReview Status = "UnderReview"
	StatusApproved    Status = "Approved"
	StatusDenied      Status = "Denied"
)

type FilerRole string

const (
	FiledByGuest FilerRole = "Guest"
	FiledByHost  FilerRole = "Host"
)

type Claim struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	BookingID string `json:"bookingId"`

	Status      Status    `json:"status"`
	FiledByRole FilerRole `json:"filedByRole"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Photos      []string  `json:"photos,omitempty"`

	EstimatedCost  decimal.Decimal  `json:"estimatedCost"`
	ApprovedAmount *decimal.Decimal `json:"approvedAmount,omitempty"`
	Deductible     decimal.Decimal  `json:"deductible"`
	FaultParty     string           `json:"faultParty,omitempty"`

	// ResponseDeadline is set once at filing and immutable. All urgency is
	// derived from it at read time.
	ResponseDeadline    time.Time  `json:"responseDeadline"`
	NeedsResponse       bool       `json:"needsResponse"`
	HasResponded        bool       `json:"hasResponded"`
	GuestResponseText   string     `json:"guestResponseText,omitempty"`
	GuestResponsePhotos []string   `json:"guestResponsePhotos,omitempty"`
	GuestResponseDate   *time.Time `json:"guestResponseDate,omitempty"`

	AccountHoldApplied bool `json:"accountHoldApplied"`

	// DeadlineExpired memoizes an already-final expiry for operator queues.
	// Readers never trust it alone; expiry is recomputed from the deadline.
	DeadlineExpired  bool       `json:"deadlineExpired"`
	ExpiryNotifiedAt *time.Time `json:"-"`

	// ResponseToken lets the guest respond from an emailed link without a
	// session (public portal endpoint).
	ResponseToken string `json:"-"`

	ResolutionNotes string     `json:"resolutionNotes,omitempty"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy      string     `json:"resolvedBy,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Claim) Resolved() bool {
	return c.Status == StatusApproved || c.Status == StatusDenied
}

type FileInput struct {
	FiledByRole   FilerRole
	Type          string
	Description   string
	EstimatedCost decimal.Decimal
	Photos        []string
}

// File creates a claim against an active or completed booking. The response
// window is policy-determined at filing time; when the host files, the
// guest must respond and carries an account hold until they do.
func File(b *booking.Booking, in FileInput, responseWindow time.Duration, now time.Time) (*Claim, error) {
	switch in.FiledByRole {
	case FiledByGuest, FiledByHost:
	default:
		return nil, fault.Validation("filedByRole must be Guest or Host")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, fault.Validation("claim description is required")
	}
	if in.EstimatedCost.IsNegative() {
		return nil, fault.Validation("estimatedCost must be >= 0")
	}

	switch b.LifecycleStatus {
	case booking.LifecycleActive, booking.LifecycleCompleted, booking.LifecycleDisputeReview:
	default:
		return nil, fault.InvalidState("claims require an Active or Completed booking, got %s", b.LifecycleStatus)
	}

	needsResponse := in.FiledByRole == FiledByHost

	id := uuid.NewString()
	return &Claim{
		ID:               id,
		Code:             "CLM-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:8]),
		BookingID:        b.ID,
		Status:           StatusPending,
		FiledByRole:      in.FiledByRole,
		Type:             in.Type,
		Description:      in.Description,
		Photos:           in.Photos,
		EstimatedCost:    in.EstimatedCost,
		Deductible:       decimal.Zero,
		ResponseDeadline: now.Add(responseWindow),
		NeedsResponse:    needsResponse,
		// Unresolved host claims hold the guest account until they respond.
		AccountHoldApplied: needsResponse,
		ResponseToken:      uuid.NewString(),
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// SubmitResponse records the guest's side of the story. Legal only inside
// the response window, once, and above the content-quality floor.
func (c *Claim) SubmitResponse(text string, photos []string, minChars int, now time.Time) error {
	if c.Resolved() {
		return fault.InvalidState("claim is already %s", c.Status)
	}
	if c.HasResponded {
		return fault.Precondition("response already submitted")
	}
	if Expired(c.ResponseDeadline, now) {
		return fault.Precondition("response window closed at %s", c.ResponseDeadline.Format(time.RFC3339))
	}
	if len(strings.TrimSpace(text)) < minChars {
		return fault.Validation("response text must be at least %d characters", minChars)
	}

	c.HasResponded = true
	c.GuestResponseText = text
	c.GuestResponsePhotos = photos
	c.GuestResponseDate = &now
	c.AccountHoldApplied = false
	c.Status = StatusUnderReview
	return nil
}

type Resolution struct {
	Outcome        Status
	ApprovedAmount *decimal.Decimal
	Deductible     *decimal.Decimal
	FaultParty     string
	Notes          string
	ResolvedBy     string
}

// Resolve is operator-only. A claim may not be closed while the guest still
// has time to respond: either they responded or the window expired.
func (c *Claim) Resolve(res Resolution, now time.Time) error {
	if res.Outcome != StatusApproved && res.Outcome != StatusDenied {
		return fault.Validation("outcome must be Approved or Denied")
	}
	if c.Resolved() {
		return fault.InvalidState("claim is already %s", c.Status)
	}
	if c.NeedsResponse && !c.HasResponded && !Expired(c.ResponseDeadline, now) {
		return fault.Precondition("guest response window is still open until %s", c.ResponseDeadline.Format(time.RFC3339))
	}
	if res.Outcome == StatusApproved {
		if res.ApprovedAmount == nil || res.ApprovedAmount.IsNegative() {
			return fault.Validation("approvedAmount is required to approve a claim")
		}
		c.ApprovedAmount = res.ApprovedAmount
	}
	if res.Deductible != nil {
		if res.Deductible.IsNegative() {
			return fault.Validation("deductible must be >= 0")
		}
		c.Deductible = *res.Deductible
	}

	c.Status = res.Outcome
	c.FaultParty = res.FaultParty
	c.ResolutionNotes = res.Notes
	c.ResolvedAt = &now
	c.ResolvedBy = res.ResolvedBy
	c.AccountHoldApplied = false
	return nil
}

// MarkExpired stamps a lapsed, unanswered window. Idempotent; the sweep
// calls it so operator queues can filter without recomputing. A lapsed
// window escalates the claim to an operator, so the automatic counterparty
// hold does not outlive it.
func (c *Claim) MarkExpired(now time.Time) bool {
	if c.Resolved() || c.HasResponded || c.DeadlineExpired {
		return false
	}
	if !Expired(c.ResponseDeadline, now) {
		return false
	}
	c.DeadlineExpired = true
	c.AccountHoldApplied = false
	return true
}
