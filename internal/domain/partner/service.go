package partner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	partners   Repository
	rateLimits RateLimitRepository
	limit      int
	window     time.Duration
}

func NewService(partners Repository, rateLimits RateLimitRepository, limit int, window time.Duration) *Service {
	return &Service{partners: partners, rateLimits: rateLimits, limit: limit, window: window}
}

// Authenticate resolves a raw API key to an active partner. Rejection has
// no side effects: the rate-limit counter is only touched after a key has
// been accepted.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*Partner, error) {
	if rawKey == "" {
		return nil, ErrMissingKey
	}
	p, err := s.partners.GetByKeyHash(ctx, HashKey(rawKey))
	if err != nil {
		if errors.Is(err, ErrPartnerNotFound) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("resolve api key: %w", err)
	}
	if !p.Active || p.RevokedAt != nil {
		return nil, ErrInvalidKey
	}
	return p, nil
}

// TakeRateLimit charges one request against the partner's window and
// returns the decision. The charge happens whether or not the request
// ultimately succeeds.
func (s *Service) TakeRateLimit(ctx context.Context, partnerID uuid.UUID) (*RateLimitDecision, error) {
	return s.rateLimits.Take(ctx, partnerID, s.limit, s.window)
}

// CreatePartner registers a new partner and returns the raw key exactly
// once.
func (s *Service) CreatePartner(ctx context.Context, name string) (*Partner, string, error) {
	if name == "" {
		return nil, "", fmt.Errorf("partner name is required")
	}
	raw, hash, prefix, err := GenerateKey()
	if err != nil {
		return nil, "", err
	}
	p := &Partner{
		Name:      name,
		KeyHash:   hash,
		KeyPrefix: prefix,
		Active:    true,
	}
	if err := s.partners.Create(ctx, p); err != nil {
		return nil, "", fmt.Errorf("create partner: %w", err)
	}
	return p, raw, nil
}

// RevokePartner deactivates a partner; its key rejects every subsequent
// request.
func (s *Service) RevokePartner(ctx context.Context, id uuid.UUID) error {
	return s.partners.Revoke(ctx, id)
}

// ListPartners returns all registered partners.
func (s *Service) ListPartners(ctx context.Context) ([]*Partner, error) {
	return s.partners.List(ctx)
}
