package claim

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"rentalcore/internal/api"
	"rentalcore/internal/audit"
	"rentalcore/internal/booking"
	"rentalcore/internal/fault"
	"rentalcore/internal/notify"
	"rentalcore/pkg/config"
	"rentalcore/pkg/db"
)

type Handlers struct {
	DB       *pgxpool.Pool
	Claims   *Repository
	Bookings *booking.Repository
	Notify   *notify.Dispatcher
	Policy   config.PolicyConfig
}

type FileRequest struct {
	FiledByRole   string   `json:"filedByRole" validate:"required,oneof=Guest Host"`
	Type          string   `json:"type" validate:"required"`
	Description   string   `json:"description" validate:"required"`
	EstimatedCost string   `json:"estimatedCost"`
	Photos        []string `json:"photos"`
}

func (h Handlers) File(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFromContext(r.Context())
	bookingID := chi.URLParam(r, "id")

	var req FileRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.WriteFault(w, err)
		return
	}

	// The declared filer role must match who is calling.
	role := FilerRole(req.FiledByRole)
	if (role == FiledByHost && actor.Role != api.RoleHost) ||
		(role == FiledByGuest && actor.Role != api.RoleGuest) {
		api.WriteFault(w, fault.Validation("filedByRole does not match the calling actor"))
		return
	}

	cost := decimal.Zero
	if req.EstimatedCost != "" {
		var err error
		cost, err = decimal.NewFromString(req.EstimatedCost)
		if err != nil {
			api.WriteFault(w, fault.Validation("estimatedCost is not a valid amount"))
			return
		}
	}

	now := time.Now()
	var c *Claim
	var b *booking.Booking
	err := db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		var err error
		b, err = booking.GetForUpdate(r.Context(), tx, bookingID)
		if err != nil {
			return err
		}
		if actor.ID != b.GuestID && actor.ID != b.HostID {
			return fault.NotFound("booking %s not found", bookingID)
		}

		c, err = File(b, FileInput{
			FiledByRole:   role,
			Type:          req.Type,
			Description:   req.Description,
			EstimatedCost: cost,
			Photos:        req.Photos,
		}, h.Policy.ClaimResponseWindow, now)
		if err != nil {
			return err
		}
		if err := Insert(r.Context(), tx, c); err != nil {
			return err
		}

		// A claim on a completed booking parks it in dispute review until
		// every open claim is resolved.
		from := b.LifecycleStatus
		b.EnterDisputeReview()
		if b.LifecycleStatus != from {
			if err := booking.Update(r.Context(), tx, b); err != nil {
				return err
			}
		}

		return audit.Insert(r.Context(), tx, "claim", c.ID, "CLAIM_FILED", actor.ID,
			map[string]any{"bookingId": b.ID, "filedByRole": role, "responseDeadline": c.ResponseDeadline})
	})
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	// The counterparty hears about the claim; when the host filed, the
	// guest owns the next move and the deadline.
	counterparty := b.GuestID
	if role == FiledByGuest {
		counterparty = b.HostID
	}
	h.Notify.Dispatch(r.Context(), notify.Notification{
		Channel:   notify.ChannelEmail,
		Recipient: counterparty,
		Event:     notify.EventClaimFiled,
		Payload: map[string]any{
			"claimId":          c.ID,
			"bookingId":        b.ID,
			"responseDeadline": c.ResponseDeadline,
			"needsResponse":    c.NeedsResponse,
		},
	})

	api.WriteJSON(w, http.StatusCreated, h.view(c, now))
}

func (h Handlers) ListByBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")
	b, err := h.Bookings.GetByID(r.Context(), bookingID)
	if err != nil {
		api.WriteFault(w, err)
		return
	}
	if err := requireParty(r, b); err != nil {
		api.WriteFault(w, err)
		return
	}

	items, err := h.Claims.ListByBooking(r.Context(), bookingID)
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	now := time.Now()
	views := make([]map[string]any, 0, len(items))
	for _, c := range items {
		views = append(views, h.view(c, now))
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": views})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Claims.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteFault(w, err)
		return
	}
	b, err := h.Bookings.GetByID(r.Context(), c.BookingID)
	if err != nil {
		api.WriteFault(w, err)
		return
	}
	if err := requireParty(r, b); err != nil {
		// Hide the claim along with its booking.
		api.WriteFault(w, fault.NotFound("claim %s not found", c.ID))
		return
	}
	api.WriteJSON(w, http.StatusOK, h.view(c, time.Now()))
}

// requireParty mirrors the booking read rule: fleet sees everything, the
// booking's own counterparties see their claims, strangers see nothing.
func requireParty(r *http.Request, b *booking.Booking) error {
	actor := api.ActorFromContext(r.Context())
	if actor == nil {
		return fault.NotFound("booking %s not found", b.ID)
	}
	if actor.Role == api.RoleFleet {
		return nil
	}
	if actor.ID == b.GuestID || actor.ID == b.HostID {
		return nil
	}
	return fault.NotFound("booking %s not found", b.ID)
}

type ResponseRequest struct {
	ResponseText string   `json:"responseText" validate:"required"`
	Photos       []string `json:"photos"`
}

// SubmitResponse is the authenticated guest path.
func (h Handlers) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func() (*Claim, error) {
		return h.Claims.GetByID(r.Context(), chi.URLParam(r, "id"))
	}, true)
}

// SubmitResponseByToken is the public portal path, reached from the link in
// the claim notification email.
func (h Handlers) SubmitResponseByToken(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func() (*Claim, error) {
		return h.Claims.GetByToken(r.Context(), chi.URLParam(r, "token"))
	}, false)
}

func (h Handlers) respond(w http.ResponseWriter, r *http.Request, peekClaim func() (*Claim, error), checkActor bool) {
	var req ResponseRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.WriteFault(w, err)
		return
	}

	// Resolve the claim outside the lock, then take locks in the same
	// booking-then-claim order every other transition uses.
	peek, err := peekClaim()
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	now := time.Now()
	actorID := "guest-portal"
	var c *Claim
	err = db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		b, err := booking.GetForUpdate(r.Context(), tx, peek.BookingID)
		if err != nil {
			return err
		}
		c, err = GetForUpdate(r.Context(), tx, peek.ID)
		if err != nil {
			return err
		}
		if checkActor {
			actor := api.ActorFromContext(r.Context())
			if actor.ID != b.GuestID {
				return fault.NotFound("claim %s not found", c.ID)
			}
			actorID = actor.ID
		}

		if err := c.SubmitResponse(req.ResponseText, req.Photos, h.Policy.ClaimResponseMinChars, now); err != nil {
			return err
		}
		if err := Update(r.Context(), tx, c); err != nil {
			return err
		}

		return audit.Insert(r.Context(), tx, "claim", c.ID, "CLAIM_RESPONSE_SUBMITTED", actorID,
			map[string]any{"bookingId": c.BookingID, "photos": len(req.Photos)})
	})
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	// Operators review next.
	h.Notify.Dispatch(r.Context(), notify.Notification{
		Channel:   notify.ChannelInApp,
		Recipient: "fleet-operations",
		Event:     notify.EventClaimResponse,
		Payload:   map[string]any{"claimId": c.ID, "bookingId": c.BookingID},
	})

	api.WriteJSON(w, http.StatusOK, h.view(c, now))
}

type ResolveRequest struct {
	Outcome         string   `json:"outcome" validate:"required,oneof=Approved Denied"`
	ApprovedAmount  *string  `json:"approvedAmount"`
	Deductible      *string  `json:"deductible"`
	FaultParty      string   `json:"faultParty"`
	Notes           string   `json:"notes"`
	ExpectedVersion *int64   `json:"expectedVersion"`
}

func (h Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFromContext(r.Context())

	var req ResolveRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.WriteFault(w, err)
		return
	}

	res := Resolution{
		Outcome:    Status(req.Outcome),
		FaultParty: req.FaultParty,
		Notes:      req.Notes,
		ResolvedBy: actor.ID,
	}
	if req.ApprovedAmount != nil {
		amt, err := decimal.NewFromString(*req.ApprovedAmount)
		if err != nil {
			api.WriteFault(w, fault.Validation("approvedAmount is not a valid amount"))
			return
		}
		res.ApprovedAmount = &amt
	}
	if req.Deductible != nil {
		ded, err := decimal.NewFromString(*req.Deductible)
		if err != nil {
			api.WriteFault(w, fault.Validation("deductible is not a valid amount"))
			return
		}
		res.Deductible = &ded
	}

	now := time.Now()
	var c *Claim
	var b *booking.Booking
	claimID := chi.URLParam(r, "id")
	peek, err := h.Claims.GetByID(r.Context(), claimID)
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	err = db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		var err error
		b, err = booking.GetForUpdate(r.Context(), tx, peek.BookingID)
		if err != nil {
			return err
		}
		c, err = GetForUpdate(r.Context(), tx, claimID)
		if err != nil {
			return err
		}
		if req.ExpectedVersion != nil && c.Version != *req.ExpectedVersion {
			return fault.Conflict("claim %s is at version %d, expected %d", c.ID, c.Version, *req.ExpectedVersion)
		}

		if err := c.Resolve(res, now); err != nil {
			return err
		}
		if err := Update(r.Context(), tx, c); err != nil {
			return err
		}

		// Last open claim resolved: the booking leaves dispute review.
		open, err := CountOpenByBooking(r.Context(), tx, b.ID)
		if err != nil {
			return err
		}
		from := b.LifecycleStatus
		if open == 0 {
			b.LeaveDisputeReview()
		}
		if b.LifecycleStatus != from {
			if err := booking.Update(r.Context(), tx, b); err != nil {
				return err
			}
		}

		return audit.Insert(r.Context(), tx, "claim", c.ID, "CLAIM_RESOLVED", actor.ID,
			map[string]any{"bookingId": b.ID, "outcome": res.Outcome, "notes": res.Notes})
	})
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	h.Notify.Dispatch(r.Context(),
		notify.Notification{Channel: notify.ChannelEmail, Recipient: b.GuestID, Event: notify.EventClaimResolved,
			Payload: map[string]any{"claimId": c.ID, "outcome": c.Status}},
		notify.Notification{Channel: notify.ChannelEmail, Recipient: b.HostID, Event: notify.EventClaimResolved,
			Payload: map[string]any{"claimId": c.ID, "outcome": c.Status}},
	)

	api.WriteJSON(w, http.StatusOK, h.view(c, now))
}

// view attaches the read-time urgency derivation to a claim.
func (h Handlers) view(c *Claim, now time.Time) map[string]any {
	return map[string]any{
		"claim":   c,
		"urgency": DeriveUrgency(c, now, h.Policy.ClaimUrgencyThreshold),
	}
}
