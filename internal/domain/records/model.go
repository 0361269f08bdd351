package records

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus values accepted on ingestion. Anything else is
// rejected during validation.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Appointment is one consultation row. Times of day are stored as
// zero-padded HH:MM strings so window arithmetic stays integer math.
type Appointment struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorName string    `db:"doctor_name" json:"doctor_name"`
	Specialty  string    `db:"specialty" json:"specialty"`
	Date       time.Time `db:"date" json:"date"`
	Time       string    `db:"time" json:"time"`
	Location   string    `db:"location" json:"location"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Medication is one prescription row. Its intake times live in
// medication_schedules so each slot tracks its own taken flag.
type Medication struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	Name         string     `db:"name" json:"name"`
	Dosage       string     `db:"dosage" json:"dosage"`
	Frequency    string     `db:"frequency" json:"frequency"`
	StartDate    time.Time  `db:"start_date" json:"start_date"`
	EndDate      *time.Time `db:"end_date" json:"end_date,omitempty"`
	Instructions string     `db:"instructions" json:"instructions"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ScheduleEntry is one daily intake slot for a medication. Taken is
// owned by the patient app and is never reset by partner syncs.
type ScheduleEntry struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	MedicationID uuid.UUID  `db:"medication_id" json:"medication_id"`
	TimeOfDay    string     `db:"time_of_day" json:"time_of_day"`
	Taken        bool       `db:"taken" json:"taken"`
	TakenAt      *time.Time `db:"taken_at" json:"taken_at,omitempty"`
}

type Exam struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	Name          string    `db:"name" json:"name"`
	Date          time.Time `db:"date" json:"date"`
	ResultSummary string    `db:"result_summary" json:"result_summary"`
	FileURL       string    `db:"file_url" json:"file_url"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type Document struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Title     string    `db:"title" json:"title"`
	Category  string    `db:"category" json:"category"`
	IssuedAt  time.Time `db:"issued_at" json:"issued_at"`
	FileURL   string    `db:"file_url" json:"file_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DueSchedule joins a schedule slot with the data the dispatcher needs
// to build and address one medication reminder.
type DueSchedule struct {
	ScheduleID     uuid.UUID
	MedicationID   uuid.UUID
	MedicationName string
	Dosage         string
	UserID         uuid.UUID
	TimeOfDay      string
	Taken          bool
}

// UpcomingAppointment is the dispatcher's view of a scheduled
// consultation on a given date.
type UpcomingAppointment struct {
	AppointmentID uuid.UUID
	UserID        uuid.UUID
	DoctorName    string
	Date          time.Time
	Time          string
	Status        string
}
