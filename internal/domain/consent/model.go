package consent

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrConsentRequired indicates there is no affirmative, unrevoked consent
// between the patient and the calling partner. The gate fails closed: a
// missing row, consent_given = false, and a set revoked_at all produce
// this error.
var ErrConsentRequired = errors.New("patient consent required")

// Consent maps to the patient_consents table (LGPD authorization between
// one patient and one partner).
type Consent struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	PartnerID uuid.UUID  `db:"partner_id" json:"partner_id"`
	Granted   bool       `db:"consent_given" json:"consent_given"`
	GrantedAt time.Time  `db:"granted_at" json:"granted_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// Valid reports whether this consent currently authorizes writes.
func (c *Consent) Valid() bool {
	return c.Granted && c.RevokedAt == nil
}
