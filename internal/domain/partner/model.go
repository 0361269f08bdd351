package partner

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMissingKey indicates the request carried no API key at all.
	ErrMissingKey = errors.New("api key missing")

	// ErrInvalidKey indicates the key does not resolve to an active partner.
	// Unknown, inactive, and revoked keys are deliberately indistinguishable
	// to the caller.
	ErrInvalidKey = errors.New("invalid api key")

	// ErrPartnerNotFound indicates the requested partner does not exist.
	ErrPartnerNotFound = errors.New("partner not found")
)

// Partner is an external ERP integrator authorized to push clinical data.
// The raw key material is never stored; only a SHA-256 hash is persisted
// alongside a short prefix for operator identification.
type Partner struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	KeyHash   string     `db:"key_hash" json:"-"`
	KeyPrefix string     `db:"key_prefix" json:"key_prefix"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// RateLimitDecision is the outcome of charging one request against a
// partner's sliding window.
type RateLimitDecision struct {
	Allowed     bool
	Remaining   int
	RetryAfter  time.Duration
	WindowStart time.Time
}

// GenerateKey mints a new raw API key and its stored form. The raw key is
// shown to the operator exactly once.
func GenerateKey() (raw, hash, prefix string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("generate key material: %w", err)
	}
	raw = "ik_" + hex.EncodeToString(buf)
	return raw, HashKey(raw), raw[:11], nil
}

// HashKey returns the hex SHA-256 digest under which a raw key is stored.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
