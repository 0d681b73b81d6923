package approval

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentalcore/internal/api"
	"rentalcore/internal/audit"
	"rentalcore/internal/booking"
	"rentalcore/internal/fault"
	"rentalcore/internal/notify"
	"rentalcore/pkg/db"
)

type Handlers struct {
	DB     *pgxpool.Pool
	Notify *notify.Dispatcher
}

type ApproveFleetRequest struct {
	Notes           string `json:"notes"`
	ExpectedVersion *int64 `json:"expectedVersion"`
}

func (h Handlers) ApproveFleet(w http.ResponseWriter, r *http.Request) {
	var req ApproveFleetRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.WriteFault(w, err)
		return
	}

	b, err := h.transition(r, req.ExpectedVersion, "FLEET_TIER_APPROVED",
		map[string]any{"notes": req.Notes},
		func(b *booking.Booking, now time.Time) error {
			return ApproveFleetTier(b, req.Notes, now)
		})
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	// Host tier is now responsible.
	h.Notify.Dispatch(r.Context(), notify.Notification{
		Channel:   notify.ChannelEmail,
		Recipient: b.HostID,
		Event:     notify.EventFleetApproved,
		Payload:   map[string]any{"bookingId": b.ID, "code": b.Code},
	})

	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

type RejectFleetRequest struct {
	Reason          string `json:"reason" validate:"required"`
	ExpectedVersion *int64 `json:"expectedVersion"`
}

func (h Handlers) RejectFleet(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFromContext(r.Context())

	var req RejectFleetRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.WriteFault(w, err)
		return
	}

	b, err := h.transition(r, req.ExpectedVersion, "FLEET_TIER_REJECTED",
		map[string]any{"reason": req.Reason},
		func(b *booking.Booking, now time.Time) error {
			return RejectFleetTier(b, req.Reason, actor.ID, now)
		})
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	h.Notify.Dispatch(r.Context(), notify.Notification{
		Channel:   notify.ChannelEmail,
		Recipient: b.GuestID,
		Event:     notify.EventFleetRejected,
		Payload:   map[string]any{"bookingId": b.ID, "code": b.Code, "reason": req.Reason},
	})

	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

type ApproveHostRequest struct {
	ExpectedVersion *int64 `json:"expectedVersion"`
}

func (h Handlers) ApproveHost(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFromContext(r.Context())

	// Body is optional for host approval, but a malformed one still fails
	// so a mistyped expectedVersion is not silently dropped.
	var req ApproveHostRequest
	if err := api.DecodeAndValidateOptional(r, &req); err != nil {
		api.WriteFault(w, err)
		return
	}

	b, err := h.transition(r, req.ExpectedVersion, "HOST_TIER_APPROVED", nil,
		func(b *booking.Booking, now time.Time) error {
			if actor.Role == api.RoleHost && actor.ID != b.HostID {
				return fault.NotFound("booking %s not found", b.ID)
			}
			return ApproveHostTier(b, now)
		})
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	// Payment captured, booking confirmed; the guest hears about it.
	h.Notify.Dispatch(r.Context(), notify.Notification{
		Channel:   notify.ChannelEmail,
		Recipient: b.GuestID,
		Event:     notify.EventBookingConfirmed,
		Payload:   map[string]any{"bookingId": b.ID, "code": b.Code},
	})

	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (h Handlers) transition(r *http.Request, expectedVersion *int64, action string, metadata map[string]any,
	fn func(b *booking.Booking, now time.Time) error) (*booking.Booking, error) {

	actor := api.ActorFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if id == "" {
		return nil, fault.Validation("missing id")
	}

	now := time.Now()
	var out *booking.Booking
	err := db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		b, err := booking.GetForUpdate(r.Context(), tx, id)
		if err != nil {
			return err
		}
		if expectedVersion != nil && b.Version != *expectedVersion {
			return fault.Conflict("booking %s is at version %d, expected %d", b.ID, b.Version, *expectedVersion)
		}

		if err := fn(b, now); err != nil {
			return err
		}
		if err := booking.Update(r.Context(), tx, b); err != nil {
			return err
		}

		md := map[string]any{
			"fleetReviewStatus": b.FleetReviewStatus,
			"hostReviewStatus":  b.HostReviewStatus,
			"paymentStatus":     b.PaymentStatus,
		}
		for k, v := range metadata {
			md[k] = v
		}
		if err := audit.Insert(r.Context(), tx, "booking", b.ID, action, actor.ID, md); err != nil {
			return err
		}

		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
