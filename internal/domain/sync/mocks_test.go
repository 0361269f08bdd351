package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vidalink/integra/internal/domain/consent"
	"github.com/vidalink/integra/internal/domain/partner"
	"github.com/vidalink/integra/internal/domain/patient"
	"github.com/vidalink/integra/internal/domain/records"
)

type mockPatientRepo struct {
	byCPF map[string]*patient.Patient
}

func (m *mockPatientRepo) FindByCPF(_ context.Context, cpf string) (*patient.Patient, error) {
	p, ok := m.byCPF[cpf]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	for _, p := range m.byCPF {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, patient.ErrNotFound
}

type mockConsentRepo struct {
	granted map[string]bool
}

func consentKey(patientID, partnerID uuid.UUID) string {
	return patientID.String() + "/" + partnerID.String()
}

func (m *mockConsentRepo) Get(_ context.Context, patientID, partnerID uuid.UUID) (*consent.Consent, error) {
	if !m.granted[consentKey(patientID, partnerID)] {
		return nil, nil
	}
	return &consent.Consent{PatientID: patientID, PartnerID: partnerID, Granted: true, GrantedAt: time.Now()}, nil
}

func (m *mockConsentRepo) Grant(_ context.Context, patientID, partnerID uuid.UUID) (*consent.Consent, error) {
	m.granted[consentKey(patientID, partnerID)] = true
	return &consent.Consent{PatientID: patientID, PartnerID: partnerID, Granted: true}, nil
}

func (m *mockConsentRepo) Revoke(_ context.Context, patientID, partnerID uuid.UUID) error {
	delete(m.granted, consentKey(patientID, partnerID))
	return nil
}

// mockRecordsRepo stores records keyed by their natural key so repeat
// upserts behave like the real unique indexes. failDoctor and failName
// force a persistence error for matching records.
type mockRecordsRepo struct {
	appointments map[string]*records.Appointment
	medications  map[string]*records.Medication
	exams        map[string]*records.Exam
	documents    map[string]*records.Document
	schedules    map[string]*records.ScheduleEntry

	failDoctor string
	failName   string
}

func newMockRecordsRepo() *mockRecordsRepo {
	return &mockRecordsRepo{
		appointments: map[string]*records.Appointment{},
		medications:  map[string]*records.Medication{},
		exams:        map[string]*records.Exam{},
		documents:    map[string]*records.Document{},
		schedules:    map[string]*records.ScheduleEntry{},
	}
}

func (m *mockRecordsRepo) UpsertAppointment(_ context.Context, a *records.Appointment) (bool, error) {
	if m.failDoctor != "" && a.DoctorName == m.failDoctor {
		return false, errors.New("forced persistence failure")
	}
	key := fmt.Sprintf("%s|%s|%s|%s", a.PatientID, a.DoctorName, a.Date.Format("2006-01-02"), a.Time)
	if existing, ok := m.appointments[key]; ok {
		a.ID = existing.ID
		m.appointments[key] = a
		return false, nil
	}
	a.ID = uuid.New()
	m.appointments[key] = a
	return true, nil
}

func (m *mockRecordsRepo) UpsertMedication(_ context.Context, med *records.Medication, times []string) (bool, error) {
	if m.failName != "" && med.Name == m.failName {
		return false, errors.New("forced persistence failure")
	}
	key := fmt.Sprintf("%s|%s|%s", med.PatientID, med.Name, med.Dosage)
	inserted := false
	if existing, ok := m.medications[key]; ok {
		med.ID = existing.ID
	} else {
		med.ID = uuid.New()
		inserted = true
	}
	m.medications[key] = med
	for _, t := range times {
		sk := med.ID.String() + "|" + t
		if _, ok := m.schedules[sk]; !ok {
			m.schedules[sk] = &records.ScheduleEntry{ID: uuid.New(), MedicationID: med.ID, TimeOfDay: t}
		}
	}
	return inserted, nil
}

func (m *mockRecordsRepo) UpsertExam(_ context.Context, e *records.Exam) (bool, error) {
	if m.failName != "" && e.Name == m.failName {
		return false, errors.New("forced persistence failure")
	}
	key := fmt.Sprintf("%s|%s|%s", e.PatientID, e.Name, e.Date.Format("2006-01-02"))
	if existing, ok := m.exams[key]; ok {
		e.ID = existing.ID
		m.exams[key] = e
		return false, nil
	}
	e.ID = uuid.New()
	m.exams[key] = e
	return true, nil
}

func (m *mockRecordsRepo) UpsertDocument(_ context.Context, d *records.Document) (bool, error) {
	key := fmt.Sprintf("%s|%s|%s", d.PatientID, d.Title, d.IssuedAt.Format("2006-01-02"))
	if existing, ok := m.documents[key]; ok {
		d.ID = existing.ID
		m.documents[key] = d
		return false, nil
	}
	d.ID = uuid.New()
	m.documents[key] = d
	return true, nil
}

func (m *mockRecordsRepo) MarkTaken(_ context.Context, scheduleID uuid.UUID) error {
	for _, s := range m.schedules {
		if s.ID == scheduleID {
			now := time.Now()
			s.Taken = true
			s.TakenAt = &now
		}
	}
	return nil
}

func (m *mockRecordsRepo) ListDueSchedules(_ context.Context, _ time.Time) ([]*records.DueSchedule, error) {
	return nil, nil
}

func (m *mockRecordsRepo) ListScheduledAppointments(_ context.Context, _ time.Time) ([]*records.UpcomingAppointment, error) {
	return nil, nil
}

type mockPartnerRepo struct {
	byHash map[string]*partner.Partner
}

func (m *mockPartnerRepo) Create(_ context.Context, p *partner.Partner) error {
	p.ID = uuid.New()
	m.byHash[p.KeyHash] = p
	return nil
}

func (m *mockPartnerRepo) GetByKeyHash(_ context.Context, hash string) (*partner.Partner, error) {
	p, ok := m.byHash[hash]
	if !ok {
		return nil, partner.ErrPartnerNotFound
	}
	return p, nil
}

func (m *mockPartnerRepo) GetByID(_ context.Context, id uuid.UUID) (*partner.Partner, error) {
	for _, p := range m.byHash {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, partner.ErrPartnerNotFound
}

func (m *mockPartnerRepo) Revoke(_ context.Context, id uuid.UUID) error {
	for _, p := range m.byHash {
		if p.ID == id {
			now := time.Now()
			p.Active = false
			p.RevokedAt = &now
		}
	}
	return nil
}

func (m *mockPartnerRepo) List(_ context.Context) ([]*partner.Partner, error) {
	var out []*partner.Partner
	for _, p := range m.byHash {
		out = append(out, p)
	}
	return out, nil
}

type mockRateLimitRepo struct {
	counts map[uuid.UUID]int
}

func (m *mockRateLimitRepo) Take(_ context.Context, partnerID uuid.UUID, limit int, window time.Duration) (*partner.RateLimitDecision, error) {
	if m.counts == nil {
		m.counts = map[uuid.UUID]int{}
	}
	m.counts[partnerID]++
	count := m.counts[partnerID]
	return &partner.RateLimitDecision{
		Allowed:     count <= limit,
		Remaining:   max(0, limit-count),
		RetryAfter:  window,
		WindowStart: time.Now(),
	}, nil
}
