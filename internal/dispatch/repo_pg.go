package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ledgerRepoPG struct{ pool *pgxpool.Pool }

func NewLedgerRepoPG(pool *pgxpool.Pool) LedgerRepository { return &ledgerRepoPG{pool: pool} }

// Claim races on the unique (kind, reminder_id, window_start) index; the
// insert that lands first wins the window.
func (r *ledgerRepoPG) Claim(ctx context.Context, kind string, reminderID uuid.UUID, windowStart time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO notification_ledger (id, kind, reminder_id, window_start)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, reminder_id, window_start) DO NOTHING`,
		uuid.New(), kind, reminderID, windowStart)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
