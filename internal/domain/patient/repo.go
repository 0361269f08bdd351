package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// FindByCPF resolves a national identification number to exactly one
	// patient, or ErrNotFound.
	FindByCPF(ctx context.Context, cpf string) (*Patient, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}

type SubscriptionRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*PushSubscription, error)
}
