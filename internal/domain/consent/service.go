package consent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	consents Repository
}

func NewService(consents Repository) *Service {
	return &Service{consents: consents}
}

// Check authorizes a partner write for one patient. Any state other than
// an affirmative, unrevoked consent row is a refusal; storage errors are
// surfaced separately so they map to 500, not 403.
func (s *Service) Check(ctx context.Context, patientID, partnerID uuid.UUID) error {
	c, err := s.consents.Get(ctx, patientID, partnerID)
	if err != nil {
		return fmt.Errorf("load consent: %w", err)
	}
	if c == nil || !c.Valid() {
		return ErrConsentRequired
	}
	return nil
}
