package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/domain/scheduling"
	"github.com/medibook/medibook/internal/domain/user"
	"github.com/medibook/medibook/internal/platform/clock"
	"github.com/medibook/medibook/internal/platform/fault"
	"github.com/medibook/medibook/pkg/timefmt"
)

// Stats is a derived snapshot, never persisted. Users is filled only for
// the admin view.
type Stats struct {
	TotalAppointments     int          `json:"total_appointments"`
	TodayAppointments     int          `json:"today_appointments"`
	ConfirmedAppointments int          `json:"confirmed_appointments"`
	CompletedAppointments int          `json:"completed_appointments"`
	Users                 *user.Counts `json:"users,omitempty"`
}

// Compute derives stats from an appointment set. Statuses are materialized
// against now first, canceled appointments are skipped, and excludeID, when
// non-nil, is dropped from every count so stats can be emitted ahead of a
// pending cancel.
func Compute(details []*scheduling.AppointmentDetail, now time.Time, excludeID uuid.UUID) Stats {
	today := timefmt.Today(now)
	var stats Stats
	for _, d := range details {
		if d.ID == excludeID {
			continue
		}
		m, _ := scheduling.CheckAndComplete(d, now)
		if m.Status == scheduling.StatusCanceled {
			continue
		}
		stats.TotalAppointments++
		if m.Slot.Date == today {
			stats.TodayAppointments++
		}
		switch m.Status {
		case scheduling.StatusConfirmed:
			stats.ConfirmedAppointments++
		case scheduling.StatusCompleted:
			stats.CompletedAppointments++
		}
	}
	return stats
}

// Pusher delivers a dashboard event to a connected user's sessions.
type Pusher interface {
	Push(userID, eventName string, payload any)
}

// UserStats supplies directory counts and the admin roster.
type UserStats interface {
	UserCounts(ctx context.Context) (user.Counts, error)
	AdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// EventDashboard is the websocket event name for a pushed stats refresh.
const EventDashboard = "dashboard"

// Service computes per-role dashboard views and pushes refreshed stats to
// the parties affected by an appointment change.
type Service struct {
	appts  scheduling.AppointmentRepository
	users  UserStats
	pusher Pusher
	clock  clock.Clock
	logger zerolog.Logger
}

func NewService(appts scheduling.AppointmentRepository, users UserStats, pusher Pusher, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		appts:  appts,
		users:  users,
		pusher: pusher,
		clock:  clk,
		logger: logger.With().Str("service", "dashboard").Logger(),
	}
}

func (s *Service) ForDoctor(ctx context.Context, doctorID uuid.UUID) (Stats, error) {
	return s.forDoctor(ctx, doctorID, uuid.Nil)
}

func (s *Service) forDoctor(ctx context.Context, doctorID, excludeID uuid.UUID) (Stats, error) {
	details, err := s.appts.ListByDoctor(ctx, doctorID)
	if err != nil {
		return Stats{}, fault.Dependencyf(err, "listing doctor appointments")
	}
	return Compute(details, s.clock.Now(), excludeID), nil
}

func (s *Service) ForPatient(ctx context.Context, patientID uuid.UUID) (Stats, error) {
	return s.forPatient(ctx, patientID, uuid.Nil)
}

func (s *Service) forPatient(ctx context.Context, patientID, excludeID uuid.UUID) (Stats, error) {
	details, err := s.appts.ListByPatient(ctx, patientID)
	if err != nil {
		return Stats{}, fault.Dependencyf(err, "listing patient appointments")
	}
	return Compute(details, s.clock.Now(), excludeID), nil
}

// ForAdmin covers the whole clinic and merges in user directory counts.
func (s *Service) ForAdmin(ctx context.Context) (Stats, error) {
	return s.forAdmin(ctx, uuid.Nil)
}

func (s *Service) forAdmin(ctx context.Context, excludeID uuid.UUID) (Stats, error) {
	details, err := s.appts.ListAll(ctx)
	if err != nil {
		return Stats{}, fault.Dependencyf(err, "listing appointments")
	}
	stats := Compute(details, s.clock.Now(), excludeID)
	counts, err := s.users.UserCounts(ctx)
	if err != nil {
		return Stats{}, fault.Dependencyf(err, "counting users")
	}
	stats.Users = &counts
	return stats, nil
}

// PushAfterChange recomputes and pushes stats for the doctor, the patient,
// and every admin after an appointment change. It is a secondary effect:
// every failure is logged and swallowed, and one recipient's failure does
// not block the rest.
func (s *Service) PushAfterChange(ctx context.Context, doctorID, patientID, excludeID uuid.UUID) {
	if stats, err := s.forDoctor(ctx, doctorID, excludeID); err != nil {
		s.logger.Error().Err(err).Stringer("doctor_id", doctorID).Msg("doctor dashboard recompute failed")
	} else {
		s.pusher.Push(doctorID.String(), EventDashboard, stats)
	}

	if stats, err := s.forPatient(ctx, patientID, excludeID); err != nil {
		s.logger.Error().Err(err).Stringer("patient_id", patientID).Msg("patient dashboard recompute failed")
	} else {
		s.pusher.Push(patientID.String(), EventDashboard, stats)
	}

	adminIDs, err := s.users.AdminIDs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("listing admins for dashboard push failed")
		return
	}
	stats, err := s.forAdmin(ctx, excludeID)
	if err != nil {
		s.logger.Error().Err(err).Msg("admin dashboard recompute failed")
		return
	}
	for _, id := range adminIDs {
		s.pusher.Push(id.String(), EventDashboard, stats)
	}
}
