package records

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists clinical records keyed by their natural identity
// within a patient, so repeated partner syncs converge instead of
// duplicating rows. Every Upsert reports whether the row was newly
// inserted (true) or refreshed in place (false).
type Repository interface {
	UpsertAppointment(ctx context.Context, a *Appointment) (inserted bool, err error)
	// UpsertMedication also seeds medication_schedules with the given
	// intake times: missing slots are inserted, existing slots keep
	// their taken state, and no slot is ever deleted.
	UpsertMedication(ctx context.Context, m *Medication, scheduleTimes []string) (inserted bool, err error)
	UpsertExam(ctx context.Context, e *Exam) (inserted bool, err error)
	UpsertDocument(ctx context.Context, d *Document) (inserted bool, err error)

	MarkTaken(ctx context.Context, scheduleID uuid.UUID) error

	// ListDueSchedules returns every not-yet-taken intake slot for
	// medications active on the given date, joined with the owning
	// patient's portal user.
	ListDueSchedules(ctx context.Context, onDate time.Time) ([]*DueSchedule, error)
	// ListScheduledAppointments returns appointments on the given date
	// still in scheduled status.
	ListScheduledAppointments(ctx context.Context, onDate time.Time) ([]*UpcomingAppointment, error)
}
