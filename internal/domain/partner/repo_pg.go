package partner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const partnerCols = `id, name, key_hash, key_prefix, active, created_at, revoked_at`

func scanPartner(row pgx.Row) (*Partner, error) {
	var p Partner
	err := row.Scan(&p.ID, &p.Name, &p.KeyHash, &p.KeyPrefix, &p.Active, &p.CreatedAt, &p.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPartnerNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Partner) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO partners (id, name, key_hash, key_prefix, active)
		VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.Name, p.KeyHash, p.KeyPrefix, p.Active)
	return err
}

func (r *repoPG) GetByKeyHash(ctx context.Context, hash string) (*Partner, error) {
	return scanPartner(r.pool.QueryRow(ctx, `SELECT `+partnerCols+` FROM partners WHERE key_hash = $1`, hash))
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Partner, error) {
	return scanPartner(r.pool.QueryRow(ctx, `SELECT `+partnerCols+` FROM partners WHERE id = $1`, id))
}

func (r *repoPG) Revoke(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE partners SET active = FALSE, revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPartnerNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context) ([]*Partner, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+partnerCols+` FROM partners ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

type rateLimitRepoPG struct{ pool *pgxpool.Pool }

func NewRateLimitRepoPG(pool *pgxpool.Pool) RateLimitRepository { return &rateLimitRepoPG{pool: pool} }

// Take charges one request in a single statement. An expired window is
// restarted, a live one is incremented; the read-modify-write happens
// inside Postgres so concurrent calls cannot lose updates.
func (r *rateLimitRepoPG) Take(ctx context.Context, partnerID uuid.UUID, limit int, window time.Duration) (*RateLimitDecision, error) {
	var windowStart time.Time
	var count int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO partner_rate_limits (partner_id, window_start, request_count)
		VALUES ($1, NOW(), 1)
		ON CONFLICT (partner_id) DO UPDATE SET
			request_count = CASE
				WHEN partner_rate_limits.window_start < NOW() - make_interval(secs => $2)
				THEN 1
				ELSE partner_rate_limits.request_count + 1
			END,
			window_start = CASE
				WHEN partner_rate_limits.window_start < NOW() - make_interval(secs => $2)
				THEN NOW()
				ELSE partner_rate_limits.window_start
			END
		RETURNING window_start, request_count`,
		partnerID, window.Seconds(),
	).Scan(&windowStart, &count)
	if err != nil {
		return nil, err
	}

	decision := &RateLimitDecision{WindowStart: windowStart}
	if count <= limit {
		decision.Allowed = true
		decision.Remaining = limit - count
	} else {
		retryAfter := time.Until(windowStart.Add(window))
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		decision.RetryAfter = retryAfter
	}
	return decision, nil
}
