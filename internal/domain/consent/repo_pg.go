package consent

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const consentCols = `id, patient_id, partner_id, consent_given, granted_at, revoked_at`

func (r *repoPG) Get(ctx context.Context, patientID, partnerID uuid.UUID) (*Consent, error) {
	var c Consent
	err := r.pool.QueryRow(ctx, `
		SELECT `+consentCols+` FROM patient_consents
		WHERE patient_id = $1 AND partner_id = $2`,
		patientID, partnerID,
	).Scan(&c.ID, &c.PatientID, &c.PartnerID, &c.Granted, &c.GrantedAt, &c.RevokedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) Grant(ctx context.Context, patientID, partnerID uuid.UUID) (*Consent, error) {
	var c Consent
	err := r.pool.QueryRow(ctx, `
		INSERT INTO patient_consents (id, patient_id, partner_id, consent_given)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (patient_id, partner_id) DO UPDATE SET
			consent_given = TRUE, granted_at = NOW(), revoked_at = NULL
		RETURNING `+consentCols,
		uuid.New(), patientID, partnerID,
	).Scan(&c.ID, &c.PatientID, &c.PartnerID, &c.Granted, &c.GrantedAt, &c.RevokedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) Revoke(ctx context.Context, patientID, partnerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE patient_consents SET revoked_at = NOW()
		WHERE patient_id = $1 AND partner_id = $2 AND revoked_at IS NULL`,
		patientID, partnerID)
	return err
}
