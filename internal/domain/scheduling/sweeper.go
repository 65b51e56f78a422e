package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/clock"
	"github.com/medibook/medibook/internal/platform/mailer"
)

// ReminderGuard answers whether a reminder notification already exists for
// a recipient and appointment. The notification store backs this.
type ReminderGuard interface {
	ReminderExists(ctx context.Context, userID uuid.UUID, reminderType string, targetID uuid.UUID) (bool, error)
}

// Sweeper owns the two periodic passes: completing elapsed appointments
// and sending 24-hour reminders.
type Sweeper struct {
	appts     *AppointmentService
	repo      AppointmentRepository
	guard     ReminderGuard
	notifier  Notifier
	mail      *mailer.Mailer
	directory Directory
	clock     clock.Clock

	statusEvery   time.Duration
	reminderEvery time.Duration
	tolerance     time.Duration

	logger zerolog.Logger
}

func NewSweeper(
	appts *AppointmentService,
	repo AppointmentRepository,
	guard ReminderGuard,
	notifier Notifier,
	mail *mailer.Mailer,
	directory Directory,
	clk clock.Clock,
	statusEvery, tolerance time.Duration,
	logger zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		appts:         appts,
		repo:          repo,
		guard:         guard,
		notifier:      notifier,
		mail:          mail,
		directory:     directory,
		clock:         clk,
		statusEvery:   statusEvery,
		reminderEvery: time.Hour,
		tolerance:     tolerance,
		logger:        logger.With().Str("service", "sweeper").Logger(),
	}
}

// Start blocks until ctx is canceled, running the status sweep and the
// reminder sweep on their own tickers.
func (s *Sweeper) Start(ctx context.Context) {
	statusTicker := time.NewTicker(s.statusEvery)
	reminderTicker := time.NewTicker(s.reminderEvery)
	defer statusTicker.Stop()
	defer reminderTicker.Stop()

	s.logger.Info().
		Dur("status_interval", s.statusEvery).
		Dur("reminder_interval", s.reminderEvery).
		Msg("sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper stopped")
			return
		case <-statusTicker.C:
			s.RunStatusSweep(ctx)
		case <-reminderTicker.C:
			s.RunReminderSweep(ctx)
		}
	}
}

// RunStatusSweep persists Completed for every appointment whose slot has
// ended.
func (s *Sweeper) RunStatusSweep(ctx context.Context) {
	n, err := s.appts.CompleteDue(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("status sweep failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int("completed", n).Msg("status sweep completed appointments")
	}
}

// RunReminderSweep finds Confirmed appointments starting about 24 hours
// out and sends a one-time reminder to patient and doctor. The persisted
// reminder notification on the patient is the idempotence guard, so
// re-running within the same or an adjacent window is a no-op.
func (s *Sweeper) RunReminderSweep(ctx context.Context) {
	now := s.clock.Now()
	center := now.Add(24 * time.Hour)
	from, to := center.Add(-s.tolerance), center.Add(s.tolerance)

	due, err := s.repo.ListConfirmedStartingBetween(ctx, from, to)
	if err != nil {
		s.logger.Error().Err(err).Msg("reminder sweep: listing appointments failed")
		return
	}

	sent := 0
	for _, detail := range due {
		ok, err := s.remind(ctx, detail)
		if err != nil {
			s.logger.Error().Err(err).Stringer("appointment_id", detail.ID).Msg("reminder failed")
			continue
		}
		if ok {
			sent++
		}
	}
	if sent > 0 {
		s.logger.Info().Int("sent", sent).Msg("reminder sweep sent reminders")
	}
}

func (s *Sweeper) remind(ctx context.Context, detail *AppointmentDetail) (bool, error) {
	exists, err := s.guard.ReminderExists(ctx, detail.PatientID, NotifyTypeReminder, detail.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	data := map[string]string{
		"date":  detail.Slot.Date,
		"start": detail.Slot.StartTime,
		"end":   detail.Slot.EndTime,
	}
	msg := "Reminder: appointment on " + detail.Slot.Date + " at " + detail.Slot.StartTime

	for _, userID := range []uuid.UUID{detail.PatientID, detail.DoctorID} {
		name, email, err := s.directory.Contact(ctx, userID)
		if err != nil {
			s.logger.Warn().Err(err).Stringer("user_id", userID).Msg("reminder: contact lookup failed")
		} else if email != "" {
			data["name"] = name
			s.mail.Send(ctx, mailer.TemplateReminder, email, data)
		}
		s.notifier.Notify(ctx, userID, msg, NotifyTypeReminder, detail.ID)
	}
	return true, nil
}
