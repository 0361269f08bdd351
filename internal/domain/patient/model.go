package patient

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the identifier does not resolve to a patient.
var ErrNotFound = errors.New("patient not found")

// Patient maps to the patients table. The core only needs identity fields;
// the portal owns the rest of the row.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CPF       string    `db:"cpf" json:"cpf"`
	FullName  string    `db:"full_name" json:"full_name"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PushSubscription is a device registration owned by the portal. The core
// only reads these to address reminders.
type PushSubscription struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"token"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
