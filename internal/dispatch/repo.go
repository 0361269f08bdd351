package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Reminder kinds recorded in the delivery ledger.
const (
	KindMedication  = "medication"
	KindAppointment = "appointment"
)

// LedgerRepository guarantees at-most-once delivery per reminder window.
// Claim returns true exactly once for a given (kind, reminder, window
// start) tuple; later claims for the same tuple return false.
type LedgerRepository interface {
	Claim(ctx context.Context, kind string, reminderID uuid.UUID, windowStart time.Time) (bool, error)
}
