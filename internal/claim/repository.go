package claim

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"rentalcore/internal/fault"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const claimColumns = `
id, code, booking_id, status, filed_by_role, type, description, photos,
estimated_cost::text, approved_amount::text, deductible::text, COALESCE(fault_party,''),
response_deadline, needs_response, has_responded,
COALESCE(guest_response_text,''), guest_response_photos, guest_response_date,
account_hold_applied, deadline_expired, expiry_notified_at, response_token,
COALESCE(resolution_notes,''), resolved_at, COALESCE(resolved_by,''),
version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*Claim, error) {
	var c Claim
	var approved *string
	if err := row.Scan(
		&c.ID, &c.Code, &c.BookingID, &c.Status, &c.FiledByRole, &c.Type, &c.Description, &c.Photos,
		&c.EstimatedCost, &approved, &c.Deductible, &c.FaultParty,
		&c.ResponseDeadline, &c.NeedsResponse, &c.HasResponded,
		&c.GuestResponseText, &c.GuestResponsePhotos, &c.GuestResponseDate,
		&c.AccountHoldApplied, &c.DeadlineExpired, &c.ExpiryNotifiedAt, &c.ResponseToken,
		&c.ResolutionNotes, &c.ResolvedAt, &c.ResolvedBy,
		&c.Version, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if approved != nil {
		amt, err := decimal.NewFromString(*approved)
		if err != nil {
			return nil, err
		}
		c.ApprovedAmount = &amt
	}
	return &c, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Claim, error) {
	c, err := scanClaim(r.db.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("claim %s not found", id)
	}
	return c, err
}

func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Claim, error) {
	c, err := scanClaim(tx.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("claim %s not found", id)
	}
	return c, err
}

// GetByToken resolves the guest portal token to its claim.
func (r *Repository) GetByToken(ctx context.Context, token string) (*Claim, error) {
	c, err := scanClaim(r.db.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE response_token = $1`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("claim link not found")
	}
	return c, err
}

func (r *Repository) ListByBooking(ctx context.Context, bookingID string) ([]*Claim, error) {
	rows, err := r.db.Query(ctx, `SELECT `+claimColumns+` FROM claims WHERE booking_id = $1 ORDER BY created_at DESC`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountOpenByBooking reports unresolved claims; deposit release blocks on a
// non-zero count.
func CountOpenByBooking(ctx context.Context, tx pgx.Tx, bookingID string) (int, error) {
	const q = `SELECT COUNT(*) FROM claims WHERE booking_id = $1 AND status IN ('Pending', 'UnderReview')`
	var n int
	err := tx.QueryRow(ctx, q, bookingID).Scan(&n)
	return n, err
}

// ListExpiredUnnotified feeds the sweep: unanswered claims past their
// window that have not had the operator escalation sent yet.
func ListExpiredUnnotified(ctx context.Context, tx pgx.Tx, now time.Time, limit int) ([]*Claim, error) {
	const q = `
SELECT ` + claimColumns + `
FROM claims
WHERE status IN ('Pending', 'UnderReview')
  AND needs_response AND NOT has_responded
  AND response_deadline <= $1
  AND expiry_notified_at IS NULL
ORDER BY response_deadline ASC
LIMIT $2
FOR UPDATE SKIP LOCKED
`
	rows, err := tx.Query(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func Insert(ctx context.Context, tx pgx.Tx, c *Claim) error {
	const q = `
INSERT INTO claims (
  id, code, booking_id, status, filed_by_role, type, description, photos,
  estimated_cost, deductible, response_deadline, needs_response,
  account_hold_applied, response_token, version, created_at, updated_at
) VALUES (
  $1, $2, $3, $4, $5, $6, $7, $8,
  $9, $10, $11, $12,
  $13, $14, $15, $16, $17
)`
	_, err := tx.Exec(ctx, q,
		c.ID, c.Code, c.BookingID, string(c.Status), string(c.FiledByRole), c.Type, c.Description, c.Photos,
		c.EstimatedCost, c.Deductible, c.ResponseDeadline, c.NeedsResponse,
		c.AccountHoldApplied, c.ResponseToken, c.Version, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func Update(ctx context.Context, tx pgx.Tx, c *Claim) error {
	var approved *decimal.Decimal
	if c.ApprovedAmount != nil {
		approved = c.ApprovedAmount
	}

	const q = `
UPDATE claims SET
  status = $1, has_responded = $2, guest_response_text = NULLIF($3, ''),
  guest_response_photos = $4, guest_response_date = $5,
  account_hold_applied = $6, deadline_expired = $7, expiry_notified_at = $8,
  approved_amount = $9, deductible = $10, fault_party = NULLIF($11, ''),
  resolution_notes = NULLIF($12, ''), resolved_at = $13, resolved_by = NULLIF($14, ''),
  version = version + 1, updated_at = NOW()
WHERE id = $15 AND version = $16`

	tag, err := tx.Exec(ctx, q,
		string(c.Status), c.HasResponded, c.GuestResponseText,
		c.GuestResponsePhotos, c.GuestResponseDate,
		c.AccountHoldApplied, c.DeadlineExpired, c.ExpiryNotifiedAt,
		approved, c.Deductible, c.FaultParty,
		c.ResolutionNotes, c.ResolvedAt, c.ResolvedBy,
		c.ID, c.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fault.Conflict("claim %s was modified concurrently, re-read and retry", c.ID)
	}
	c.Version++
	return nil
}
