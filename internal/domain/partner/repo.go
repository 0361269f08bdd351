package partner

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Partner) error
	GetByKeyHash(ctx context.Context, hash string) (*Partner, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Partner, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Partner, error)
}

// RateLimitRepository charges requests against a per-partner window. Take
// must be atomic: concurrent calls for the same partner may not lose
// increments.
type RateLimitRepository interface {
	Take(ctx context.Context, partnerID uuid.UUID, limit int, window time.Duration) (*RateLimitDecision, error)
}
