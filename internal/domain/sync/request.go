package sync

import (
	"fmt"
	"regexp"
	"time"
)

const (
	maxBatchSize = 100
	dateLayout   = "2006-01-02"
)

var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`)

// FieldError is one schema violation. Validation never stops at the
// first problem; the caller gets the complete list.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every FieldError found in a payload and maps
// to a 400 response.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("payload validation failed with %d error(s)", len(e.Errors))
}

type AppointmentRecord struct {
	DoctorName string `json:"doctor_name"`
	Type       string `json:"type"`
	Date       string `json:"appointment_date"`
	Time       string `json:"appointment_time"`
	Location   string `json:"location"`
	Status     string `json:"status"`
}

type MedicationRecord struct {
	Name         string   `json:"name"`
	Dosage       string   `json:"dosage"`
	Frequency    string   `json:"frequency"`
	Times        []string `json:"times"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Instructions string   `json:"instructions"`
}

type ExamRecord struct {
	Name          string `json:"name"`
	Date          string `json:"exam_date"`
	ResultSummary string `json:"result_summary"`
	FileURL       string `json:"file_url"`
}

type DocumentRecord struct {
	Title      string `json:"title"`
	Category   string `json:"category"`
	IssuedDate string `json:"issued_date"`
	URL        string `json:"url"`
}

type AppointmentsRequest struct {
	PatientCPF   string              `json:"patient_cpf"`
	Appointments []AppointmentRecord `json:"appointments"`
}

type MedicationsRequest struct {
	PatientCPF  string             `json:"patient_cpf"`
	Medications []MedicationRecord `json:"medications"`
}

type ExamsRequest struct {
	PatientCPF string       `json:"patient_cpf"`
	Exams      []ExamRecord `json:"exams"`
}

type DocumentsRequest struct {
	PatientCPF string           `json:"patient_cpf"`
	Documents  []DocumentRecord `json:"documents"`
}

func validateCPF(cpf string, errs *[]FieldError) {
	if cpf == "" {
		*errs = append(*errs, FieldError{"patient_cpf", "is required"})
		return
	}
	if len(cpf) < 11 || len(cpf) > 14 {
		*errs = append(*errs, FieldError{"patient_cpf", "must be 11 to 14 characters"})
	}
}

func validateBatch(field string, n int, errs *[]FieldError) bool {
	if n == 0 {
		*errs = append(*errs, FieldError{field, "must contain at least 1 record"})
		return false
	}
	if n > maxBatchSize {
		*errs = append(*errs, FieldError{field, fmt.Sprintf("must contain at most %d records", maxBatchSize)})
	}
	return true
}

func requireField(field, value string, errs *[]FieldError) {
	if value == "" {
		*errs = append(*errs, FieldError{field, "is required"})
	}
}

func validateDate(field, value string, required bool, errs *[]FieldError) {
	if value == "" {
		if required {
			*errs = append(*errs, FieldError{field, "is required"})
		}
		return
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		*errs = append(*errs, FieldError{field, "must be a valid date in YYYY-MM-DD format"})
	}
}

func validateTime(field, value string, required bool, errs *[]FieldError) {
	if value == "" {
		if required {
			*errs = append(*errs, FieldError{field, "is required"})
		}
		return
	}
	if !timePattern.MatchString(value) {
		*errs = append(*errs, FieldError{field, "must be a valid time in HH:MM or HH:MM:SS format"})
	}
}

func (r *AppointmentsRequest) Validate() []FieldError {
	var errs []FieldError
	validateCPF(r.PatientCPF, &errs)
	if !validateBatch("appointments", len(r.Appointments), &errs) {
		return errs
	}
	for i, rec := range r.Appointments {
		prefix := fmt.Sprintf("appointments[%d].", i)
		requireField(prefix+"doctor_name", rec.DoctorName, &errs)
		validateDate(prefix+"appointment_date", rec.Date, true, &errs)
		validateTime(prefix+"appointment_time", rec.Time, true, &errs)
		if rec.Status != "" {
			switch rec.Status {
			case "scheduled", "completed", "cancelled":
			default:
				errs = append(errs, FieldError{prefix + "status", "must be one of scheduled, completed, cancelled"})
			}
		}
	}
	return errs
}

func (r *MedicationsRequest) Validate() []FieldError {
	var errs []FieldError
	validateCPF(r.PatientCPF, &errs)
	if !validateBatch("medications", len(r.Medications), &errs) {
		return errs
	}
	for i, rec := range r.Medications {
		prefix := fmt.Sprintf("medications[%d].", i)
		requireField(prefix+"name", rec.Name, &errs)
		requireField(prefix+"dosage", rec.Dosage, &errs)
		requireField(prefix+"frequency", rec.Frequency, &errs)
		validateDate(prefix+"start_date", rec.StartDate, true, &errs)
		validateDate(prefix+"end_date", rec.EndDate, false, &errs)
		for j, t := range rec.Times {
			validateTime(fmt.Sprintf("%stimes[%d]", prefix, j), t, true, &errs)
		}
	}
	return errs
}

func (r *ExamsRequest) Validate() []FieldError {
	var errs []FieldError
	validateCPF(r.PatientCPF, &errs)
	if !validateBatch("exams", len(r.Exams), &errs) {
		return errs
	}
	for i, rec := range r.Exams {
		prefix := fmt.Sprintf("exams[%d].", i)
		requireField(prefix+"name", rec.Name, &errs)
		validateDate(prefix+"exam_date", rec.Date, true, &errs)
	}
	return errs
}

func (r *DocumentsRequest) Validate() []FieldError {
	var errs []FieldError
	validateCPF(r.PatientCPF, &errs)
	if !validateBatch("documents", len(r.Documents), &errs) {
		return errs
	}
	for i, rec := range r.Documents {
		prefix := fmt.Sprintf("documents[%d].", i)
		requireField(prefix+"title", rec.Title, &errs)
		validateDate(prefix+"issued_date", rec.IssuedDate, true, &errs)
	}
	return errs
}

// normalizeTime pads HH:MM:SS input down to HH:MM so natural keys stay
// stable regardless of how the partner formats seconds.
func normalizeTime(t string) string {
	if len(t) == 8 {
		return t[:5]
	}
	return t
}

func parseDate(value string) time.Time {
	d, _ := time.Parse(dateLayout, value)
	return d
}
