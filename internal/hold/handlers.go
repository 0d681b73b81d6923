package hold

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

type RequestDocumentsRequest struct {
	Reason        string     `json:"reason" validate:"required"`
	DocumentTypes []string   `json:"documentTypes" validate:"required,min=1,dive,required"`
	Deadline      *time.Time `json:"deadline"`
	Message       string     `json:"message"`
}

func (h Handlers) RequestDocuments(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFromContext(r.Context())

	var req RequestDocumentsRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.WriteFault(w, err)
		return
	}

	b, err := h.transition(r, "VERIFICATION_REQUESTED",
		map[string]any{"documentTypes": req.DocumentTypes, "deadline": req.Deadline},
		func(b *booking.Booking, now time.Time) error {
			return RequestDocuments(b, Request{
				Reason:        req.Reason,
				DocumentTypes: req.DocumentTypes,
				Deadline:      req.Deadline,
				Message:       req.Message,
				SetBy:         actor.ID,
			}, now)
		})
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	// The guest is now responsible for uploading documents.
	h.Notify.Dispatch(r.Context(), notify.Notification{
		Channel:   notify.ChannelEmail,
		Recipient: b.GuestID,
		Event:     notify.EventDocumentsRequested,
		Payload: map[string]any{
			"bookingId":     b.ID,
			"documentTypes": req.DocumentTypes,
			"deadline":      req.Deadline,
			"message":       req.Message,
		},
	})

	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (h Handlers) Release(w http.ResponseWriter, r *http.Request) {
	b, err := h.transition(r, "HOLD_RELEASED", nil,
		func(b *booking.Booking, now time.Time) error {
			return Release(b, now)
		})
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	h.Notify.Dispatch(r.Context(), notify.Notification{
		Channel:   notify.ChannelEmail,
		Recipient: b.GuestID,
		Event:     notify.EventHoldReleased,
		Payload:   map[string]any{"bookingId": b.ID, "lifecycleStatus": b.LifecycleStatus},
	})

	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (h Handlers) transition(r *http.Request, action string, metadata map[string]any,
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
		from := b.LifecycleStatus
		if err := fn(b, now); err != nil {
			return err
		}
		if err := booking.Update(r.Context(), tx, b); err != nil {
			return err
		}

		md := map[string]any{"from": from, "to": b.LifecycleStatus, "verificationStatus": b.VerificationStatus}
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
