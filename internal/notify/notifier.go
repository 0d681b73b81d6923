package notify

import (
	"context"
	"log"
	"sync/atomic"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelInApp Channel = "inApp"
)

// Event names the template a downstream worker renders. One event per
// responsibility change.
type Event string

const (
	EventBookingCreated       Event = "booking.created"
	EventFleetApproved        Event = "booking.fleet_approved"
	EventFleetRejected        Event = "booking.fleet_rejected"
	EventBookingConfirmed     Event = "booking.confirmed"
	EventBookingCancelled     Event = "booking.cancelled"
	EventBookingCompleted     Event = "booking.completed"
	EventDepositReleased      Event = "booking.deposit_released"
	EventDocumentsRequested   Event = "verification.documents_requested"
	EventHoldReleased         Event = "verification.hold_released"
	EventClaimFiled           Event = "claim.filed"
	EventClaimResponse        Event = "claim.response_received"
	EventClaimResolved        Event = "claim.resolved"
	EventClaimWindowExpired   Event = "claim.response_window_expired"
	EventHoldDeadlineOverdue  Event = "verification.hold_deadline_overdue"
)

type Notification struct {
	Channel   Channel        `json:"channel"`
	Recipient string         `json:"recipient"`
	Event     Event          `json:"event"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Notifier is the outbound gateway. Implementations must not block state
// transitions on delivery; the dispatcher below swallows their errors.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// LogNotifier is the local-dev fallback when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, n Notification) error {
	log.Printf("notify: %s -> %s via %s", n.Event, n.Recipient, n.Channel)
	return nil
}

// Dispatcher wraps a Notifier with the fire-and-forget contract: failures
// are logged and counted, never returned to the transition that sent them.
type Dispatcher struct {
	notifier Notifier
	failures atomic.Int64
}

func NewDispatcher(n Notifier) *Dispatcher {
	if n == nil {
		n = LogNotifier{}
	}
	return &Dispatcher{notifier: n}
}

func (d *Dispatcher) Dispatch(ctx context.Context, ns ...Notification) {
	for _, n := range ns {
		if err := d.notifier.Send(ctx, n); err != nil {
			d.failures.Add(1)
			log.Printf("notify: send %s to %s failed (dropped): %v", n.Event, n.Recipient, err)
		}
	}
}

// Failures reports how many sends were dropped since startup.
func (d *Dispatcher) Failures() int64 {
	return d.failures.Load()
}
