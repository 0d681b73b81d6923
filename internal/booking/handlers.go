package booking

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"rentalcore/internal/api"
	"rentalcore/internal/audit"
	"rentalcore/internal/fault"
	"rentalcore/internal/notify"
	"rentalcore/pkg/config"
	"rentalcore/pkg/db"
)

type Handlers struct {
	DB       *pgxpool.Pool
	Bookings *Repository
	Notify   *notify.Dispatcher
	Policy   config.PolicyConfig
}

type CreateRequest struct {
	HostID        string    `json:"hostId" validate:"required"`
	VehicleID     string    `json:"vehicleId" validate:"required"`
	StartDate     time.Time `json:"startDate" validate:"required"`
	EndDate       time.Time `json:"endDate" validate:"required"`
	TotalAmount   string    `json:"totalAmount" validate:"required"`
	DepositAmount string    `json:"depositAmount"`
	Currency      string    `json:"currency" validate:"required,len=3"`
	RiskScore     int       `json:"riskScore" validate:"min=0,max=100"`
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFromContext(r.Context())

	var req CreateRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.WriteFault(w, err)
		return
	}

	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		api.WriteFault(w, fault.Validation("totalAmount is not a valid amount"))
		return
	}
	deposit := decimal.Zero
	if req.DepositAmount != "" {
		deposit, err = decimal.NewFromString(req.DepositAmount)
		if err != nil {
			api.WriteFault(w, fault.Validation("depositAmount is not a valid amount"))
			return
		}
	}

	now := time.Now()
	b, err := New(CreateInput{
		GuestID:       actor.ID,
		HostID:        req.HostID,
		VehicleID:     req.VehicleID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		TotalAmount:   total,
		DepositAmount: deposit,
		Currency:      req.Currency,
		RiskScore:     req.RiskScore,
	}, h.Policy.RiskFlagThreshold, now)
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	err = db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		if err := Insert(r.Context(), tx, b); err != nil {
			return err
		}
		return audit.Insert(r.Context(), tx, "booking", b.ID, "BOOKING_CREATED", actor.ID,
			map[string]any{"code": b.Code, "riskScore": b.RiskScore, "flaggedForReview": b.FlaggedForReview})
	})
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	// Fleet tier is now responsible for first review.
	h.Notify.Dispatch(r.Context(), notify.Notification{
		Channel:   notify.ChannelInApp,
		Recipient: "fleet-operations",
		Event:     notify.EventBookingCreated,
		Payload:   map[string]any{"bookingId": b.ID, "code": b.Code, "flaggedForReview": b.FlaggedForReview},
	})

	api.WriteJSON(w, http.StatusCreated, map[string]any{"booking": b})
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Bookings.List(r.Context())
	if err != nil {
		api.WriteFault(w, err)
		return
	}
	if items == nil {
		items = []*Booking{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteFault(w, err)
		return
	}
	if err := requireParty(r, b); err != nil {
		api.WriteFault(w, err)
		return
	}

	resp := map[string]any{"booking": b}
	if b.Hold != nil {
		resp["holdUrgency"] = b.Hold.Derive(time.Now())
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

type CancelRequest struct {
	Reason          string `json:"reason" validate:"required"`
	ExpectedVersion *int64 `json:"expectedVersion"`
}

func (h Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFromContext(r.Context())

	var req CancelRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.WriteFault(w, err)
		return
	}

	b, err := h.transition(r, req.ExpectedVersion, "BOOKING_CANCELLED",
		map[string]any{"reason": req.Reason},
		func(tx pgx.Tx, b *Booking, now time.Time) error {
			if err := requirePartyActor(actor, b); err != nil {
				return err
			}
			return b.Cancel(req.Reason, actor.ID, now)
		})
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	h.Notify.Dispatch(r.Context(),
		notify.Notification{Channel: notify.ChannelEmail, Recipient: b.GuestID, Event: notify.EventBookingCancelled,
			Payload: map[string]any{"bookingId": b.ID, "reason": req.Reason}},
		notify.Notification{Channel: notify.ChannelEmail, Recipient: b.HostID, Event: notify.EventBookingCancelled,
			Payload: map[string]any{"bookingId": b.ID, "reason": req.Reason}},
	)

	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (h Handlers) StartTrip(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFromContext(r.Context())
	b, err := h.transition(r, nil, "TRIP_STARTED", nil,
		func(tx pgx.Tx, b *Booking, now time.Time) error {
			if err := requirePartyActor(actor, b); err != nil {
				return err
			}
			return b.StartTrip(now)
		})
	if err != nil {
		api.WriteFault(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (h Handlers) EndTrip(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFromContext(r.Context())
	b, err := h.transition(r, nil, "TRIP_ENDED", nil,
		func(tx pgx.Tx, b *Booking, now time.Time) error {
			if err := requirePartyActor(actor, b); err != nil {
				return err
			}
			return b.EndTrip(now)
		})
	if err != nil {
		api.WriteFault(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (h Handlers) Complete(w http.ResponseWriter, r *http.Request) {
	b, err := h.transition(r, nil, "BOOKING_COMPLETED", nil,
		func(tx pgx.Tx, b *Booking, now time.Time) error {
			return b.Complete(now)
		})
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	// Host final review opens: the host may file a damage claim before the
	// security deposit is released.
	h.Notify.Dispatch(r.Context(), notify.Notification{
		Channel:   notify.ChannelEmail,
		Recipient: b.HostID,
		Event:     notify.EventBookingCompleted,
		Payload:   map[string]any{"bookingId": b.ID, "code": b.Code},
	})

	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (h Handlers) ReleaseDeposit(w http.ResponseWriter, r *http.Request) {
	b, err := h.transition(r, nil, "DEPOSIT_RELEASED", nil,
		func(tx pgx.Tx, b *Booking, now time.Time) error {
			const qOpen = `SELECT COUNT(*) FROM claims WHERE booking_id = $1 AND status IN ('Pending', 'UnderReview')`
			var open int
			if err := tx.QueryRow(r.Context(), qOpen, b.ID).Scan(&open); err != nil {
				return err
			}
			return b.ReleaseDeposit(open > 0, now)
		})
	if err != nil {
		api.WriteFault(w, err)
		return
	}

	h.Notify.Dispatch(r.Context(), notify.Notification{
		Channel:   notify.ChannelEmail,
		Recipient: b.GuestID,
		Event:     notify.EventDepositReleased,
		Payload:   map[string]any{"bookingId": b.ID, "amount": b.DepositAmount.String(), "currency": b.Currency},
	})

	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

// Activity serves the operator feed over the append-only log.
func (h Handlers) Activity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Bookings.GetByID(r.Context(), id); err != nil {
		api.WriteFault(w, err)
		return
	}

	items, err := audit.ListByEntity(r.Context(), h.DB, "booking", id)
	if err != nil {
		api.WriteFault(w, err)
		return
	}
	if items == nil {
		items = []audit.Entry{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// transition runs the read-lock/guard/update/audit cycle every booking
// mutation shares. fn sees the locked row and applies the pure transition.
func (h Handlers) transition(r *http.Request, expectedVersion *int64, action string, metadata map[string]any,
	fn func(tx pgx.Tx, b *Booking, now time.Time) error) (*Booking, error) {

	actor := api.ActorFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if id == "" {
		return nil, fault.Validation("missing id")
	}

	now := time.Now()
	var out *Booking
	err := db.WithTx(r.Context(), h.DB, func(tx pgx.Tx) error {
		b, err := GetForUpdate(r.Context(), tx, id)
		if err != nil {
			return err
		}
		if expectedVersion != nil && b.Version != *expectedVersion {
			return fault.Conflict("booking %s is at version %d, expected %d", b.ID, b.Version, *expectedVersion)
		}

		from := b.LifecycleStatus
		if err := fn(tx, b, now); err != nil {
			return err
		}

		if err := Update(r.Context(), tx, b); err != nil {
			return err
		}

		md := map[string]any{"from": from, "to": b.LifecycleStatus}
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

// requireParty restricts reads to the fleet operator and the booking's own
// counterparties.
func requireParty(r *http.Request, b *Booking) error {
	return requirePartyActor(api.ActorFromContext(r.Context()), b)
}

func requirePartyActor(actor *api.Actor, b *Booking) error {
	if actor == nil {
		return fault.NotFound("booking %s not found", b.ID)
	}
	if actor.Role == api.RoleFleet {
		return nil
	}
	if actor.ID == b.GuestID || actor.ID == b.HostID {
		return nil
	}
	// Hide existence from strangers.
	return fault.NotFound("booking %s not found", b.ID)
}
