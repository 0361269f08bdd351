package sync

import (
	"strings"
	"testing"
)

func hasFieldError(errs []FieldError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestAppointmentsValidateOK(t *testing.T) {
	req := &AppointmentsRequest{
		PatientCPF: "12345678900",
		Appointments: []AppointmentRecord{
			{DoctorName: "Dr. Silva", Type: "consulta", Date: "2025-02-15", Time: "14:30"},
		},
	}
	if errs := req.Validate(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestAppointmentsValidateCollectsAllErrors(t *testing.T) {
	req := &AppointmentsRequest{
		PatientCPF: "12345678900",
		Appointments: []AppointmentRecord{
			{Date: "15/02/2025", Time: "25:99"},
		},
	}
	errs := req.Validate()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	for _, field := range []string{
		"appointments[0].doctor_name",
		"appointments[0].appointment_date",
		"appointments[0].appointment_time",
	} {
		if !hasFieldError(errs, field) {
			t.Errorf("missing error for %s in %v", field, errs)
		}
	}
}

func TestValidateBatchTooLargeAndBadDateBothReported(t *testing.T) {
	recs := make([]ExamRecord, maxBatchSize+1)
	for i := range recs {
		recs[i] = ExamRecord{Name: "hemograma", Date: "2025-03-01"}
	}
	recs[0].Date = "not-a-date"
	req := &ExamsRequest{PatientCPF: "12345678900", Exams: recs}

	errs := req.Validate()
	if !hasFieldError(errs, "exams") {
		t.Errorf("expected batch size error, got %v", errs)
	}
	if !hasFieldError(errs, "exams[0].exam_date") {
		t.Errorf("expected date error, got %v", errs)
	}
}

func TestValidateEmptyBatch(t *testing.T) {
	req := &DocumentsRequest{PatientCPF: "12345678900"}
	errs := req.Validate()
	if len(errs) != 1 || !hasFieldError(errs, "documents") {
		t.Fatalf("expected single batch error, got %v", errs)
	}
}

func TestValidateCPF(t *testing.T) {
	cases := []struct {
		cpf     string
		wantErr bool
	}{
		{"", true},
		{"123", true},
		{"12345678900", false},
		{"123.456.789-00", false},
		{"123456789001234", true},
	}
	for _, tc := range cases {
		req := &ExamsRequest{
			PatientCPF: tc.cpf,
			Exams:      []ExamRecord{{Name: "x", Date: "2025-01-01"}},
		}
		errs := req.Validate()
		got := hasFieldError(errs, "patient_cpf")
		if got != tc.wantErr {
			t.Errorf("cpf %q: error=%v, want %v", tc.cpf, got, tc.wantErr)
		}
	}
}

func TestValidateTimeFormats(t *testing.T) {
	valid := []string{"00:00", "09:15", "14:30", "23:59", "14:30:00"}
	invalid := []string{"24:00", "9:30", "14:60", "14.30", "14:30:60", "noon"}

	for _, v := range valid {
		var errs []FieldError
		validateTime("t", v, true, &errs)
		if len(errs) != 0 {
			t.Errorf("time %q: expected valid, got %v", v, errs)
		}
	}
	for _, v := range invalid {
		var errs []FieldError
		validateTime("t", v, true, &errs)
		if len(errs) == 0 {
			t.Errorf("time %q: expected invalid", v)
		}
	}
}

func TestMedicationsValidateTimes(t *testing.T) {
	req := &MedicationsRequest{
		PatientCPF: "12345678900",
		Medications: []MedicationRecord{
			{Name: "Losartana", Dosage: "50mg", Frequency: "12/12h", StartDate: "2025-01-10", Times: []string{"08:00", "99:00"}},
		},
	}
	errs := req.Validate()
	if len(errs) != 1 || !strings.Contains(errs[0].Field, "times[1]") {
		t.Fatalf("expected one error on times[1], got %v", errs)
	}
}

func TestNormalizeTime(t *testing.T) {
	if got := normalizeTime("14:30:00"); got != "14:30" {
		t.Errorf("normalizeTime(14:30:00) = %q", got)
	}
	if got := normalizeTime("14:30"); got != "14:30" {
		t.Errorf("normalizeTime(14:30) = %q", got)
	}
}
