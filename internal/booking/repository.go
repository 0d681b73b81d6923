package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentalcore/internal/fault"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const bookingColumns = `
id, code, guest_id, host_id, vehicle_id, start_date, end_date,
lifecycle_status, fleet_review_status, host_review_status, verification_status,
payment_status, trip_status, host_final_review_status,
hold_reason, hold_set_at, hold_set_by, hold_deadline, hold_message, hold_document_types, hold_prior_status,
risk_score, flagged_for_review,
total_amount::text, deposit_amount::text, currency, deposit_released,
COALESCE(fleet_review_notes,''), COALESCE(cancellation_reason,''), cancelled_at, COALESCE(cancelled_by,''),
version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*Booking, error) {
	var b Booking
	var holdReason, holdSetBy, holdMessage, holdPrior *string
	var holdSetAt, holdDeadline *time.Time
	var holdDocTypes []string

	if err := row.Scan(
		&b.ID, &b.Code, &b.GuestID, &b.HostID, &b.VehicleID, &b.StartDate, &b.EndDate,
		&b.LifecycleStatus, &b.FleetReviewStatus, &b.HostReviewStatus, &b.VerificationStatus,
		&b.PaymentStatus, &b.TripStatus, &b.HostFinalReviewStatus,
		&holdReason, &holdSetAt, &holdSetBy, &holdDeadline, &holdMessage, &holdDocTypes, &holdPrior,
		&b.RiskScore, &b.FlaggedForReview,
		&b.TotalAmount, &b.DepositAmount, &b.Currency, &b.DepositReleased,
		&b.FleetReviewNotes, &b.CancellationReason, &b.CancelledAt, &b.CancelledBy,
		&b.Version, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if holdReason != nil && holdSetAt != nil {
		h := HoldState{
			Reason:        *holdReason,
			SetAt:         *holdSetAt,
			Deadline:      holdDeadline,
			DocumentTypes: holdDocTypes,
			PriorStatus:   LifecycleConfirmed,
		}
		if holdSetBy != nil {
			h.SetBy = *holdSetBy
		}
		if holdMessage != nil {
			h.Message = *holdMessage
		}
		if holdPrior != nil {
			if st, err := ParseLifecycleStatus(*holdPrior); err == nil {
				h.PriorStatus = st
			}
		}
		b.Hold = &h
	}
	return &b, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("booking %s not found", id)
	}
	return b, err
}

// GetForUpdate locks the booking row for the duration of the transaction.
// Per-booking serialization of transitions hangs off this lock.
func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Booking, error) {
	b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("booking %s not found", id)
	}
	return b, err
}

func (r *Repository) List(ctx context.Context) ([]*Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func Insert(ctx context.Context, tx pgx.Tx, b *Booking) error {
	const q = `
INSERT INTO bookings (
  id, code, guest_id, host_id, vehicle_id, start_date, end_date,
  lifecycle_status, fleet_review_status, host_review_status, verification_status,
  payment_status, trip_status, host_final_review_status,
  risk_score, flagged_for_review,
  total_amount, deposit_amount, currency, deposit_released,
  version, created_at, updated_at
) VALUES (
  $1, $2, $3, $4, $5, $6, $7,
  $8, $9, $10, $11,
  $12, $13, $14,
  $15, $16,
  $17, $18, $19, $20,
  $21, $22, $23
)`
	_, err := tx.Exec(ctx, q,
		b.ID, b.Code, b.GuestID, b.HostID, b.VehicleID, b.StartDate, b.EndDate,
		string(b.LifecycleStatus), string(b.FleetReviewStatus), string(b.HostReviewStatus), string(b.VerificationStatus),
		string(b.PaymentStatus), string(b.TripStatus), string(b.HostFinalReviewStatus),
		b.RiskScore, b.FlaggedForReview,
		b.TotalAmount, b.DepositAmount, b.Currency, b.DepositReleased,
		b.Version, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

// Update persists every mutable dimension and bumps the version. The WHERE
// clause doubles as a compare-and-set: zero rows means someone committed in
// between and the caller gets a conflict to re-read and retry on.
func Update(ctx context.Context, tx pgx.Tx, b *Booking) error {
	var holdReason, holdSetBy, holdMessage, holdPrior *string
	var holdSetAt, holdDeadline *time.Time
	var holdDocTypes []string
	if b.Hold != nil {
		holdReason = &b.Hold.Reason
		holdSetAt = &b.Hold.SetAt
		holdSetBy = &b.Hold.SetBy
		holdDeadline = b.Hold.Deadline
		holdMessage = &b.Hold.Message
		holdDocTypes = b.Hold.DocumentTypes
		prior := string(b.Hold.PriorStatus)
		holdPrior = &prior
	}

	const q = `
UPDATE bookings SET
  lifecycle_status = $1, fleet_review_status = $2, host_review_status = $3, verification_status = $4,
  payment_status = $5, trip_status = $6, host_final_review_status = $7,
  hold_reason = $8, hold_set_at = $9, hold_set_by = $10, hold_deadline = $11, hold_message = $12,
  hold_document_types = $13, hold_prior_status = $14,
  flagged_for_review = $15, deposit_released = $16,
  fleet_review_notes = NULLIF($17, ''), cancellation_reason = NULLIF($18, ''),
  cancelled_at = $19, cancelled_by = NULLIF($20, ''),
  version = version + 1, updated_at = NOW()
WHERE id = $21 AND version = $22`

	tag, err := tx.Exec(ctx, q,
		string(b.LifecycleStatus), string(b.FleetReviewStatus), string(b.HostReviewStatus), string(b.VerificationStatus),
		string(b.PaymentStatus), string(b.TripStatus), string(b.HostFinalReviewStatus),
		holdReason, holdSetAt, holdSetBy, holdDeadline, holdMessage,
		holdDocTypes, holdPrior,
		b.FlaggedForReview, b.DepositReleased,
		b.FleetReviewNotes, b.CancellationReason,
		b.CancelledAt, b.CancelledBy,
		b.ID, b.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.Conflict("booking %s was modified concurrently, re-read and retry", b.ID)
	}
	b.Version++
	return nil
}
