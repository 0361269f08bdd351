package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vidalink/integra/internal/domain/consent"
	"github.com/vidalink/integra/internal/domain/patient"
)

func newTestService(t *testing.T) (*Service, *mockRecordsRepo, uuid.UUID, uuid.UUID) {
	t.Helper()
	patientID, partnerID := uuid.New(), uuid.New()
	patients := &mockPatientRepo{byCPF: map[string]*patient.Patient{
		"12345678900": {ID: patientID, CPF: "12345678900", FullName: "Maria Souza", UserID: uuid.New()},
	}}
	consents := &mockConsentRepo{granted: map[string]bool{
		consentKey(patientID, partnerID): true,
	}}
	repo := newMockRecordsRepo()
	svc := NewService(patients, consent.NewService(consents), repo, zerolog.Nop())
	return svc, repo, patientID, partnerID
}

func TestSyncAppointmentsInsertThenUpdate(t *testing.T) {
	svc, _, _, partnerID := newTestService(t)
	req := &AppointmentsRequest{
		PatientCPF: "12345678900",
		Appointments: []AppointmentRecord{
			{DoctorName: "Dr. Silva", Type: "consulta", Date: "2025-02-15", Time: "14:30"},
		},
	}

	res, err := svc.SyncAppointments(context.Background(), partnerID, req)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if res.Inserted != 1 || res.Updated != 0 || res.Total != 1 {
		t.Fatalf("first sync: inserted=%d updated=%d total=%d", res.Inserted, res.Updated, res.Total)
	}

	res, err = svc.SyncAppointments(context.Background(), partnerID, req)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if res.Inserted != 0 || res.Updated != 1 || res.Total != 1 {
		t.Fatalf("second sync: inserted=%d updated=%d total=%d", res.Inserted, res.Updated, res.Total)
	}
}

func TestSyncAppointmentsSecondsNormalizedIntoSameKey(t *testing.T) {
	svc, repo, _, partnerID := newTestService(t)
	first := &AppointmentsRequest{
		PatientCPF:   "12345678900",
		Appointments: []AppointmentRecord{{DoctorName: "Dr. Silva", Date: "2025-02-15", Time: "14:30"}},
	}
	second := &AppointmentsRequest{
		PatientCPF:   "12345678900",
		Appointments: []AppointmentRecord{{DoctorName: "Dr. Silva", Date: "2025-02-15", Time: "14:30:00"}},
	}

	if _, err := svc.SyncAppointments(context.Background(), partnerID, first); err != nil {
		t.Fatal(err)
	}
	res, err := svc.SyncAppointments(context.Background(), partnerID, second)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 || len(repo.appointments) != 1 {
		t.Fatalf("expected one stored row updated in place, updated=%d rows=%d", res.Updated, len(repo.appointments))
	}
}

func TestSyncValidationErrorReturnsAllViolations(t *testing.T) {
	svc, repo, _, partnerID := newTestService(t)
	req := &AppointmentsRequest{
		PatientCPF:   "12345678900",
		Appointments: []AppointmentRecord{{DoctorName: "Dr. Silva", Date: "bad", Time: "bad"}},
	}

	_, err := svc.SyncAppointments(context.Background(), partnerID, req)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(vErr.Errors) != 2 {
		t.Fatalf("expected 2 field errors, got %v", vErr.Errors)
	}
	if len(repo.appointments) != 0 {
		t.Fatal("no rows may be written on validation failure")
	}
}

func TestSyncUnknownPatient(t *testing.T) {
	svc, _, _, partnerID := newTestService(t)
	req := &AppointmentsRequest{
		PatientCPF:   "99999999999",
		Appointments: []AppointmentRecord{{DoctorName: "Dr. Silva", Date: "2025-02-15", Time: "14:30"}},
	}

	_, err := svc.SyncAppointments(context.Background(), partnerID, req)
	if !errors.Is(err, patient.ErrNotFound) {
		t.Fatalf("expected patient.ErrNotFound, got %v", err)
	}
}

func TestSyncWithoutConsentWritesNothing(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	strangerPartner := uuid.New()
	req := &AppointmentsRequest{
		PatientCPF:   "12345678900",
		Appointments: []AppointmentRecord{{DoctorName: "Dr. Silva", Date: "2025-02-15", Time: "14:30"}},
	}

	_, err := svc.SyncAppointments(context.Background(), strangerPartner, req)
	if !errors.Is(err, consent.ErrConsentRequired) {
		t.Fatalf("expected ErrConsentRequired, got %v", err)
	}
	if len(repo.appointments) != 0 {
		t.Fatal("no rows may be written without consent")
	}
}

func TestSyncPartialBatchTolerance(t *testing.T) {
	svc, repo, _, partnerID := newTestService(t)
	repo.failDoctor = "Dr. Falha"

	recs := make([]AppointmentRecord, 5)
	for i := range recs {
		recs[i] = AppointmentRecord{
			DoctorName: fmt.Sprintf("Dr. %d", i),
			Date:       "2025-02-15",
			Time:       fmt.Sprintf("%02d:00", 9+i),
		}
	}
	recs[2].DoctorName = "Dr. Falha"
	req := &AppointmentsRequest{PatientCPF: "12345678900", Appointments: recs}

	res, err := svc.SyncAppointments(context.Background(), partnerID, req)
	if err != nil {
		t.Fatalf("batch with one bad record must still succeed: %v", err)
	}
	if res.Total != 4 || res.Inserted != 4 {
		t.Fatalf("total=%d inserted=%d, want 4/4", res.Total, res.Inserted)
	}
	if len(res.Appointments) != 4 {
		t.Fatalf("response must include only the 4 stored records, got %d", len(res.Appointments))
	}
}

func TestSyncMedicationsSeedsSchedulesOnceAndPreservesTaken(t *testing.T) {
	svc, repo, _, partnerID := newTestService(t)
	req := &MedicationsRequest{
		PatientCPF: "12345678900",
		Medications: []MedicationRecord{
			{Name: "Losartana", Dosage: "50mg", Frequency: "12/12h", StartDate: "2025-01-10", Times: []string{"08:00", "20:00"}},
		},
	}

	res, err := svc.SyncMedications(context.Background(), partnerID, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Inserted != 1 || len(repo.schedules) != 2 {
		t.Fatalf("inserted=%d schedules=%d, want 1/2", res.Inserted, len(repo.schedules))
	}

	var morning uuid.UUID
	for _, s := range repo.schedules {
		if s.TimeOfDay == "08:00" {
			morning = s.ID
		}
	}
	if err := repo.MarkTaken(context.Background(), morning); err != nil {
		t.Fatal(err)
	}

	res, err = svc.SyncMedications(context.Background(), partnerID, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 || len(repo.schedules) != 2 {
		t.Fatalf("repeat sync: updated=%d schedules=%d, want 1/2", res.Updated, len(repo.schedules))
	}
	for _, s := range repo.schedules {
		if s.ID == morning && !s.Taken {
			t.Fatal("repeat sync must not reset the taken flag")
		}
	}
}

func TestSyncExamsAndDocumentsUpsert(t *testing.T) {
	svc, _, _, partnerID := newTestService(t)

	examReq := &ExamsRequest{
		PatientCPF: "12345678900",
		Exams:      []ExamRecord{{Name: "Hemograma", Date: "2025-03-01", ResultSummary: "normal"}},
	}
	eRes, err := svc.SyncExams(context.Background(), partnerID, examReq)
	if err != nil || eRes.Inserted != 1 {
		t.Fatalf("exam insert: inserted=%d err=%v", eRes.Inserted, err)
	}
	eRes, err = svc.SyncExams(context.Background(), partnerID, examReq)
	if err != nil || eRes.Updated != 1 {
		t.Fatalf("exam repeat: updated=%d err=%v", eRes.Updated, err)
	}

	docReq := &DocumentsRequest{
		PatientCPF: "12345678900",
		Documents:  []DocumentRecord{{Title: "Atestado", Category: "atestado", IssuedDate: "2025-03-02"}},
	}
	dRes, err := svc.SyncDocuments(context.Background(), partnerID, docReq)
	if err != nil || dRes.Inserted != 1 {
		t.Fatalf("document insert: inserted=%d err=%v", dRes.Inserted, err)
	}
	dRes, err = svc.SyncDocuments(context.Background(), partnerID, docReq)
	if err != nil || dRes.Updated != 1 {
		t.Fatalf("document repeat: updated=%d err=%v", dRes.Updated, err)
	}
}
