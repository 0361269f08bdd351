package consent

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Get returns the consent row between a patient and a partner, or
	// (nil, nil) when none exists.
	Get(ctx context.Context, patientID, partnerID uuid.UUID) (*Consent, error)
	Grant(ctx context.Context, patientID, partnerID uuid.UUID) (*Consent, error)
	Revoke(ctx context.Context, patientID, partnerID uuid.UUID) error
}
