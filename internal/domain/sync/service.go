package sync

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vidalink/integra/internal/domain/consent"
	"github.com/vidalink/integra/internal/domain/patient"
	"github.com/vidalink/integra/internal/domain/records"
)

// Service reconciles one partner batch into the store for exactly one
// patient. Records are processed sequentially in input order; a record
// that fails persistence is logged and skipped, never failing the batch.
type Service struct {
	patients patient.Repository
	consents *consent.Service
	records  records.Repository
	logger   zerolog.Logger
}

func NewService(patients patient.Repository, consents *consent.Service, repo records.Repository, logger zerolog.Logger) *Service {
	return &Service{patients: patients, consents: consents, records: repo, logger: logger}
}

type AppointmentsResult struct {
	Inserted     int
	Updated      int
	Total        int
	Appointments []*records.Appointment
}

type MedicationsResult struct {
	Inserted    int
	Updated     int
	Total       int
	Medications []*records.Medication
}

type ExamsResult struct {
	Inserted int
	Updated  int
	Total    int
	Exams    []*records.Exam
}

type DocumentsResult struct {
	Inserted  int
	Updated   int
	Total     int
	Documents []*records.Document
}

// admit runs the shared tail of the precondition chain: payload already
// validated, so resolve the patient then require consent for the caller.
func (s *Service) admit(ctx context.Context, partnerID uuid.UUID, cpf string) (*patient.Patient, error) {
	p, err := s.patients.FindByCPF(ctx, cpf)
	if err != nil {
		return nil, err
	}
	if err := s.consents.Check(ctx, p.ID, partnerID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) SyncAppointments(ctx context.Context, partnerID uuid.UUID, req *AppointmentsRequest) (*AppointmentsResult, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	p, err := s.admit(ctx, partnerID, req.PatientCPF)
	if err != nil {
		return nil, err
	}

	res := &AppointmentsResult{}
	for i, rec := range req.Appointments {
		a := &records.Appointment{
			PatientID:  p.ID,
			DoctorName: rec.DoctorName,
			Specialty:  rec.Type,
			Date:       parseDate(rec.Date),
			Time:       normalizeTime(rec.Time),
			Location:   rec.Location,
			Status:     rec.Status,
		}
		if a.Status == "" {
			a.Status = records.StatusScheduled
		}
		inserted, err := s.records.UpsertAppointment(ctx, a)
		if err != nil {
			s.logger.Error().Err(err).
				Str("partner_id", partnerID.String()).
				Int("index", i).
				Msg("appointment upsert failed, record skipped")
			continue
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
		res.Total++
		res.Appointments = append(res.Appointments, a)
	}
	return res, nil
}

func (s *Service) SyncMedications(ctx context.Context, partnerID uuid.UUID, req *MedicationsRequest) (*MedicationsResult, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	p, err := s.admit(ctx, partnerID, req.PatientCPF)
	if err != nil {
		return nil, err
	}

	res := &MedicationsResult{}
	for i, rec := range req.Medications {
		m := &records.Medication{
			PatientID:    p.ID,
			Name:         rec.Name,
			Dosage:       rec.Dosage,
			Frequency:    rec.Frequency,
			StartDate:    parseDate(rec.StartDate),
			Instructions: rec.Instructions,
		}
		if rec.EndDate != "" {
			end := parseDate(rec.EndDate)
			m.EndDate = &end
		}
		times := make([]string, 0, len(rec.Times))
		for _, t := range rec.Times {
			times = append(times, normalizeTime(t))
		}
		inserted, err := s.records.UpsertMedication(ctx, m, times)
		if err != nil {
			s.logger.Error().Err(err).
				Str("partner_id", partnerID.String()).
				Int("index", i).
				Msg("medication upsert failed, record skipped")
			continue
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
		res.Total++
		res.Medications = append(res.Medications, m)
	}
	return res, nil
}

func (s *Service) SyncExams(ctx context.Context, partnerID uuid.UUID, req *ExamsRequest) (*ExamsResult, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	p, err := s.admit(ctx, partnerID, req.PatientCPF)
	if err != nil {
		return nil, err
	}

	res := &ExamsResult{}
	for i, rec := range req.Exams {
		e := &records.Exam{
			PatientID:     p.ID,
			Name:          rec.Name,
			Date:          parseDate(rec.Date),
			ResultSummary: rec.ResultSummary,
			FileURL:       rec.FileURL,
		}
		inserted, err := s.records.UpsertExam(ctx, e)
		if err != nil {
			s.logger.Error().Err(err).
				Str("partner_id", partnerID.String()).
				Int("index", i).
				Msg("exam upsert failed, record skipped")
			continue
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
		res.Total++
		res.Exams = append(res.Exams, e)
	}
	return res, nil
}

func (s *Service) SyncDocuments(ctx context.Context, partnerID uuid.UUID, req *DocumentsRequest) (*DocumentsResult, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	p, err := s.admit(ctx, partnerID, req.PatientCPF)
	if err != nil {
		return nil, err
	}

	res := &DocumentsResult{}
	for i, rec := range req.Documents {
		d := &records.Document{
			PatientID: p.ID,
			Title:     rec.Title,
			Category:  rec.Category,
			IssuedAt:  parseDate(rec.IssuedDate),
			FileURL:   rec.URL,
		}
		inserted, err := s.records.UpsertDocument(ctx, d)
		if err != nil {
			s.logger.Error().Err(err).
				Str("partner_id", partnerID.String()).
				Int("index", i).
				Msg("document upsert failed, record skipped")
			continue
		}
		if inserted {
			res.Inserted++
		} else {
			res.Updated++
		}
		res.Total++
		res.Documents = append(res.Documents, d)
	}
	return res, nil
}
