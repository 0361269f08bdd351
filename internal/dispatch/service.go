package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vidalink/integra/internal/domain/patient"
	"github.com/vidalink/integra/internal/domain/records"
	"github.com/vidalink/integra/internal/platform/push"
)

// Eligibility windows in minutes. All comparisons are integer
// minutes-since-midnight on the server's local date; stored timestamps
// are taken as-is with no timezone conversion.
const (
	medicationWindowMin = 0
	medicationWindowMax = 15
	appointmentLeadMin  = 50
	appointmentLeadMax  = 70
)

type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

type Detail struct {
	Type    string    `json:"type"`
	UserID  uuid.UUID `json:"userId"`
	Success bool      `json:"success"`
}

type Summary struct {
	NotificationsSent int      `json:"notificationsSent"`
	Details           []Detail `json:"details"`
}

// Service scans due medication schedules and upcoming appointments and
// pushes one reminder per window. Individual send failures are recorded
// in the summary; only infrastructure failures abort a run.
type Service struct {
	records records.Repository
	subs    patient.SubscriptionRepository
	ledger  LedgerRepository
	tokens  TokenProvider
	sender  push.Sender
	logger  zerolog.Logger
}

func NewService(repo records.Repository, subs patient.SubscriptionRepository, ledger LedgerRepository, tokens TokenProvider, sender push.Sender, logger zerolog.Logger) *Service {
	return &Service{records: repo, subs: subs, ledger: ledger, tokens: tokens, sender: sender, logger: logger}
}

// minutesOfDay parses a zero-padded HH:MM or HH:MM:SS clock value.
func minutesOfDay(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("malformed clock value %q", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed clock value %q", clock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed clock value %q", clock)
	}
	return h*60 + m, nil
}

// Run executes one dispatcher pass against the given wall-clock moment.
// The token is fetched once; a credential or exchange failure aborts
// the whole run before any reminder is considered.
func (s *Service) Run(ctx context.Context, now time.Time) (*Summary, error) {
	bearer, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire push token: %w", err)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	nowMin := now.Hour()*60 + now.Minute()
	summary := &Summary{Details: []Detail{}}

	schedules, err := s.records.ListDueSchedules(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	for _, sched := range schedules {
		schedMin, err := minutesOfDay(sched.TimeOfDay)
		if err != nil {
			s.logger.Warn().Str("schedule_id", sched.ScheduleID.String()).Str("time", sched.TimeOfDay).Msg("skipping schedule with malformed time")
			continue
		}
		delta := schedMin - nowMin
		if delta < medicationWindowMin || delta > medicationWindowMax {
			continue
		}
		if sched.Taken {
			continue
		}
		windowStart := today.Add(time.Duration(schedMin) * time.Minute)
		claimed, err := s.ledger.Claim(ctx, KindMedication, sched.ScheduleID, windowStart)
		if err != nil {
			return nil, fmt.Errorf("claim medication window: %w", err)
		}
		if !claimed {
			continue
		}
		msg := push.Message{
			Title: "Hora do medicamento",
			Body:  fmt.Sprintf("%s %s", sched.MedicationName, sched.Dosage),
			Data:  map[string]string{"type": KindMedication, "medication_id": sched.MedicationID.String()},
		}
		s.fanOut(ctx, bearer, KindMedication, sched.UserID, msg, summary)
	}

	appts, err := s.records.ListScheduledAppointments(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	for _, appt := range appts {
		apptMin, err := minutesOfDay(appt.Time)
		if err != nil {
			s.logger.Warn().Str("appointment_id", appt.AppointmentID.String()).Str("time", appt.Time).Msg("skipping appointment with malformed time")
			continue
		}
		delta := apptMin - nowMin
		if delta < appointmentLeadMin || delta > appointmentLeadMax {
			continue
		}
		if appt.Status != records.StatusScheduled {
			continue
		}
		windowStart := today.Add(time.Duration(apptMin) * time.Minute)
		claimed, err := s.ledger.Claim(ctx, KindAppointment, appt.AppointmentID, windowStart)
		if err != nil {
			return nil, fmt.Errorf("claim appointment window: %w", err)
		}
		if !claimed {
			continue
		}
		msg := push.Message{
			Title: "Lembrete de consulta",
			Body:  fmt.Sprintf("Consulta em 1 hora com %s", appt.DoctorName),
			Data:  map[string]string{"type": KindAppointment, "appointment_id": appt.AppointmentID.String()},
		}
		s.fanOut(ctx, bearer, KindAppointment, appt.UserID, msg, summary)
	}

	return summary, nil
}

// fanOut sends one message per device subscription, sequentially. A
// failed send is logged and recorded, never propagated.
func (s *Service) fanOut(ctx context.Context, bearer, kind string, userID uuid.UUID, msg push.Message, summary *Summary) {
	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID.String()).Msg("listing push subscriptions failed")
		summary.Details = append(summary.Details, Detail{Type: kind, UserID: userID, Success: false})
		return
	}
	for _, sub := range subs {
		msg.Token = sub.Token
		if err := s.sender.Send(ctx, bearer, msg); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID.String()).Str("kind", kind).Msg("push send failed")
			summary.Details = append(summary.Details, Detail{Type: kind, UserID: userID, Success: false})
			continue
		}
		summary.NotificationsSent++
		summary.Details = append(summary.Details, Detail{Type: kind, UserID: userID, Success: true})
	}
}
