package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one append-only activity record. The core never reads these to
// make decisions; the list exists for the operator activity feed.
type Entry struct {
	ID         int64           `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Action     string          `json:"action"`
	Actor      string          `json:"actor"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Insert appends inside the caller's transaction so the log entry commits
// with the state mutation it describes, never before it.
func Insert(ctx context.Context, tx pgx.Tx, entityType, entityID, action, actor string, metadata any) error {
	var s *string
	if metadata != nil {
		b, _ := json.Marshal(metadata)
		str := string(b)
		s = &str
	}
	const q = `
INSERT INTO activity_log (entity_type, entity_id, action, actor, metadata, occurred_at)
VALUES ($1, $2, $3, $4, CAST($5 AS jsonb), NOW())
`
	_, err := tx.Exec(ctx, q, entityType, entityID, action, actor, s)
	return err
}

func ListByEntity(ctx context.Context, db *pgxpool.Pool, entityType, entityID string) ([]Entry, error) {
	const q = `
SELECT id, entity_type, entity_id, action, actor, metadata, occurred_at
FROM activity_log
WHERE entity_type = $1 AND entity_id = $2
ORDER BY id ASC
`
	rows, err := db.Query(ctx, q, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.Actor, &e.Metadata, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
