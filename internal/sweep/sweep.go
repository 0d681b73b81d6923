// Package sweep proactively flags expired claim-response windows and
// overdue verification holds for operator attention. It is an optimization:
// every read derives expiry from stored deadlines on its own, so nothing is
// incorrect if the sweep never runs.
package sweep

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentalcore/internal/audit"
	"rentalcore/internal/claim"
	"rentalcore/internal/notify"
	"rentalcore/pkg/db"
)

const batchSize = 100

type Sweeper struct {
	DB     *pgxpool.Pool
	Notify *notify.Dispatcher
}

// Run loops until the context ends. Interval granularity is coarse on
// purpose; deadlines are advisory escalations, not realtime triggers.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.RunOnce(ctx, time.Now()); err != nil {
				log.Printf("sweep: pass failed: %v", err)
			}
		}
	}
}

// RunOnce stamps expired, unanswered claims and notifies operators exactly
// once per claim. Auto-denial is deliberately not done here: a lapsed
// window escalates to a human, it never resolves a claim by itself.
func (s *Sweeper) RunOnce(ctx context.Context, now time.Time) error {
	var expired []*claim.Claim
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		items, err := claim.ListExpiredUnnotified(ctx, tx, now, batchSize)
		if err != nil {
			return err
		}
		for _, c := range items {
			if !c.MarkExpired(now) {
				continue
			}
			c.ExpiryNotifiedAt = &now
			if err := claim.Update(ctx, tx, c); err != nil {
				return err
			}
			if err := audit.Insert(ctx, tx, "claim", c.ID, "RESPONSE_WINDOW_EXPIRED", "sweep",
				map[string]any{"responseDeadline": c.ResponseDeadline}); err != nil {
				return err
			}
			expired = append(expired, c)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, c := range expired {
		s.Notify.Dispatch(ctx, notify.Notification{
			Channel:   notify.ChannelInApp,
			Recipient: "fleet-operations",
			Event:     notify.EventClaimWindowExpired,
			Payload:   map[string]any{"claimId": c.ID, "bookingId": c.BookingID},
		})
	}

	return s.sweepHolds(ctx, now)
}

// sweepHolds surfaces holds past their advisory deadline. No state changes;
// whether to cancel an unattended hold stays an operator call.
func (s *Sweeper) sweepHolds(ctx context.Context, now time.Time) error {
	const q = `
SELECT id, code, hold_deadline
FROM bookings
WHERE lifecycle_status = 'OnHold' AND hold_deadline IS NOT NULL AND hold_deadline <= $1
`
	rows, err := s.DB.Query(ctx, q, now)
	if err != nil {
		return err
	}
	defer rows.Close()

	type overdue struct {
		id, code string
		deadline time.Time
	}
	var items []overdue
	for rows.Next() {
		var o overdue
		if err := rows.Scan(&o.id, &o.code, &o.deadline); err != nil {
			return err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, o := range items {
		s.Notify.Dispatch(ctx, notify.Notification{
			Channel:   notify.ChannelInApp,
			Recipient: "fleet-operations",
			Event:     notify.EventHoldDeadlineOverdue,
			Payload:   map[string]any{"bookingId": o.id, "code": o.code, "deadline": o.deadline},
		})
	}
	return nil
}
