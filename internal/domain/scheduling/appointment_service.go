package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/clock"
	"github.com/medibook/medibook/internal/platform/fault"
	"github.com/medibook/medibook/internal/platform/mailer"
	"github.com/medibook/medibook/pkg/timefmt"
)

// Notification types attached by the appointment flows.
const (
	NotifyTypeAppointment = "appointment"
	NotifyTypeReminder    = "reminder"
)

// Notifier persists a notification for a user and pushes it to any live
// session. Implementations absorb their own failures; a lost notification
// must never fail the appointment mutation that caused it.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, message, notifType string, targetID uuid.UUID)
	NotifyAdmins(ctx context.Context, message, notifType string, targetID uuid.UUID)
}

// DashboardPusher recomputes and pushes dashboard stats for the parties of
// a change. excludeID, when non-nil, drops that appointment from the counts
// so stats can be emitted ahead of a destructive write.
type DashboardPusher interface {
	PushAfterChange(ctx context.Context, doctorID, patientID, excludeID uuid.UUID)
}

// Directory resolves a user id to a display name and email address.
type Directory interface {
	Contact(ctx context.Context, id uuid.UUID) (name, email string, err error)
}

// AppointmentService binds patients to slots and owns the appointment
// status lifecycle.
type AppointmentService struct {
	appts     AppointmentRepository
	slots     SlotRepository
	clock     clock.Clock
	notifier  Notifier
	dash      DashboardPusher
	mail      *mailer.Mailer
	directory Directory
	logger    zerolog.Logger
}

func NewAppointmentService(
	appts AppointmentRepository,
	slots SlotRepository,
	clk clock.Clock,
	notifier Notifier,
	dash DashboardPusher,
	mail *mailer.Mailer,
	directory Directory,
	logger zerolog.Logger,
) *AppointmentService {
	return &AppointmentService{
		appts:     appts,
		slots:     slots,
		clock:     clk,
		notifier:  notifier,
		dash:      dash,
		mail:      mail,
		directory: directory,
		logger:    logger.With().Str("service", "appointment").Logger(),
	}
}

// Book reserves the slot and creates a Confirmed appointment. The slot is
// taken with a conditional update, so a concurrent booking of the same slot
// fails here with a conflict rather than double-binding. If the appointment
// write fails after the slot was taken, the slot is released again.
func (s *AppointmentService) Book(ctx context.Context, actor auth.Actor, slotID uuid.UUID, notes string) (*AppointmentDetail, error) {
	if actor.Role != auth.RolePatient {
		return nil, fault.Forbiddenf("only patients book appointments")
	}
	patientID, err := uuid.Parse(actor.ID)
	if err != nil {
		return nil, fault.Forbiddenf("unknown actor")
	}

	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fault.Dependencyf(err, "loading slot")
	}
	if slot == nil {
		return nil, fault.NotFoundf("slot %s not found", slotID)
	}
	if slot.IsBooked {
		return nil, fault.Conflictf("slot is already booked")
	}
	if future, err := timefmt.IsStrictlyFuture(slot.Date, slot.StartTime, s.clock.Now()); err != nil || !future {
		return nil, fault.Conflictf("slot has already started")
	}

	booked, err := s.slots.MarkBooked(ctx, slotID)
	if err != nil {
		return nil, fault.Dependencyf(err, "reserving slot")
	}
	if !booked {
		return nil, fault.Conflictf("slot was booked by another patient")
	}

	appt := &Appointment{
		SlotID:    slotID,
		DoctorID:  slot.DoctorID,
		PatientID: patientID,
		Status:    StatusConfirmed,
		Notes:     notes,
	}
	if err := s.appts.Create(ctx, appt); err != nil {
		if relErr := s.slots.Release(ctx, slotID); relErr != nil {
			s.logger.Error().Err(relErr).Stringer("slot_id", slotID).
				Msg("rollback failed, slot left booked without appointment")
		}
		return nil, fault.Dependencyf(err, "creating appointment")
	}
	slot.IsBooked = true

	patientName := s.notifyBooked(ctx, appt, slot)
	s.dash.PushAfterChange(ctx, appt.DoctorID, appt.PatientID, uuid.Nil)
	s.logger.Info().Stringer("appointment_id", appt.ID).Str("patient", patientName).Msg("appointment booked")

	return &AppointmentDetail{Appointment: *appt, Slot: *slot}, nil
}

func (s *AppointmentService) notifyBooked(ctx context.Context, appt *Appointment, slot *Slot) string {
	patientName, patientEmail, err := s.directory.Contact(ctx, appt.PatientID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not resolve patient contact")
		patientName = "A patient"
	}
	doctorName, doctorEmail, err := s.directory.Contact(ctx, appt.DoctorID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not resolve doctor contact")
	}

	msg := patientName + " booked " + slot.Date + " " + slot.StartTime
	s.notifier.Notify(ctx, appt.DoctorID, msg, NotifyTypeAppointment, appt.ID)
	s.notifier.NotifyAdmins(ctx, msg, NotifyTypeAppointment, appt.ID)

	data := map[string]string{"date": slot.Date, "start": slot.StartTime, "end": slot.EndTime}
	if patientEmail != "" {
		data["name"] = patientName
		s.mail.Send(ctx, mailer.TemplateBooked, patientEmail, data)
	}
	if doctorEmail != "" {
		data["name"] = doctorName
		s.mail.Send(ctx, mailer.TemplateBooked, doctorEmail, data)
	}
	return patientName
}

// Cancel moves a Confirmed appointment to Canceled and frees its slot.
// Only the appointment's patient, its doctor, or an admin may cancel.
// Dashboard stats are pushed before the write, with this appointment
// excluded, so connected dashboards already reflect the post-cancel state
// even if the write then fails.
func (s *AppointmentService) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) error {
	detail, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !s.participant(actor, detail) {
		return fault.Forbiddenf("not a party to this appointment")
	}
	if materialized, _ := CheckAndComplete(detail, s.clock.Now()); materialized.Status != StatusConfirmed {
		return fault.Conflictf("only confirmed appointments can be canceled")
	}

	s.dash.PushAfterChange(ctx, detail.DoctorID, detail.PatientID, detail.ID)

	if err := s.appts.UpdateStatus(ctx, id, StatusCanceled, reason); err != nil {
		return fault.Dependencyf(err, "canceling appointment")
	}
	if err := s.slots.Release(ctx, detail.SlotID); err != nil {
		// reconciliation clears this on the next read
		s.logger.Error().Err(err).Stringer("slot_id", detail.SlotID).Msg("failed to release slot on cancel")
	}

	s.notifyCanceled(ctx, actor, detail, reason)
	return nil
}

func (s *AppointmentService) notifyCanceled(ctx context.Context, actor auth.Actor, detail *AppointmentDetail, reason string) {
	msg := "Appointment on " + detail.Slot.Date + " " + detail.Slot.StartTime + " was canceled"
	if reason != "" {
		msg += ": " + reason
	}
	if actor.ID != detail.DoctorID.String() {
		s.notifier.Notify(ctx, detail.DoctorID, msg, NotifyTypeAppointment, detail.ID)
	}
	if actor.ID != detail.PatientID.String() {
		s.notifier.Notify(ctx, detail.PatientID, msg, NotifyTypeAppointment, detail.ID)
	}
	s.notifier.NotifyAdmins(ctx, msg, NotifyTypeAppointment, detail.ID)

	data := map[string]string{"date": detail.Slot.Date, "start": detail.Slot.StartTime, "end": detail.Slot.EndTime}
	for _, userID := range []uuid.UUID{detail.PatientID, detail.DoctorID} {
		name, email, err := s.directory.Contact(ctx, userID)
		if err != nil || email == "" {
			continue
		}
		data["name"] = name
		s.mail.Send(ctx, mailer.TemplateCanceled, email, data)
	}
}

// UpdateStatus lets a doctor or admin force a terminal status. Completing
// ahead of the sweep and canceling without a reason both go through here.
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, status string) (*AppointmentDetail, error) {
	if status != StatusCompleted && status != StatusCanceled {
		return nil, fault.Validationf("status must be %q or %q", StatusCompleted, StatusCanceled)
	}
	detail, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == auth.RoleDoctor && actor.ID != detail.DoctorID.String() {
		return nil, fault.Forbiddenf("not this appointment's doctor")
	}
	if actor.Role == auth.RolePatient {
		return nil, fault.Forbiddenf("patients cancel through the cancel endpoint")
	}
	if detail.Status != StatusConfirmed {
		return nil, fault.Conflictf("appointment is already %s", detail.Status)
	}

	if err := s.appts.UpdateStatus(ctx, id, status, ""); err != nil {
		return nil, fault.Dependencyf(err, "updating status")
	}
	detail.Status = status
	if status == StatusCanceled {
		if err := s.slots.Release(ctx, detail.SlotID); err != nil {
			s.logger.Error().Err(err).Stringer("slot_id", detail.SlotID).Msg("failed to release slot")
		}
	} else {
		s.notifyCompleted(ctx, detail)
	}
	s.dash.PushAfterChange(ctx, detail.DoctorID, detail.PatientID, uuid.Nil)
	return detail, nil
}

func (s *AppointmentService) notifyCompleted(ctx context.Context, detail *AppointmentDetail) {
	msg := "Appointment on " + detail.Slot.Date + " " + detail.Slot.StartTime + " is completed"
	s.notifier.Notify(ctx, detail.PatientID, msg, NotifyTypeAppointment, detail.ID)
	s.notifier.Notify(ctx, detail.DoctorID, msg, NotifyTypeAppointment, detail.ID)

	name, email, err := s.directory.Contact(ctx, detail.PatientID)
	if err == nil && email != "" {
		s.mail.Send(ctx, mailer.TemplateCompleted, email, map[string]string{
			"name": name, "date": detail.Slot.Date, "start": detail.Slot.StartTime, "end": detail.Slot.EndTime,
		})
	}
}

// AddDoctorComment attaches or replaces the doctor's note on an
// appointment and tells the patient.
func (s *AppointmentService) AddDoctorComment(ctx context.Context, actor auth.Actor, id uuid.UUID, comment string) (*AppointmentDetail, error) {
	if comment == "" {
		return nil, fault.Validationf("comment must not be empty")
	}
	detail, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == auth.RolePatient {
		return nil, fault.Forbiddenf("only doctors and admins comment")
	}
	if actor.Role == auth.RoleDoctor && actor.ID != detail.DoctorID.String() {
		return nil, fault.Forbiddenf("not this appointment's doctor")
	}
	if err := s.appts.UpdateComment(ctx, id, comment); err != nil {
		return nil, fault.Dependencyf(err, "updating comment")
	}
	detail.DoctorComment = comment
	s.notifier.Notify(ctx, detail.PatientID, "Your doctor added a comment", NotifyTypeAppointment, detail.ID)
	return detail, nil
}

// CheckAndComplete is pure. Given an appointment with its slot, it returns
// a copy transitioned to Completed when the slot's end time has elapsed,
// and whether a transition happened. Callers decide whether to persist, so
// running it repeatedly, or concurrently with the sweeper, is harmless.
func CheckAndComplete(detail *AppointmentDetail, now time.Time) (AppointmentDetail, bool) {
	out := *detail
	if out.Status != StatusConfirmed {
		return out, false
	}
	end, err := timefmt.Instant(out.Slot.Date, out.Slot.EndTime)
	if err != nil {
		return out, false
	}
	if now.Before(end) {
		return out, false
	}
	out.Status = StatusCompleted
	return out, true
}

// materialize applies CheckAndComplete to every result so read views are
// consistent with wall-clock time. Nothing is written here; the sweeper is
// the only path that persists the transition.
func (s *AppointmentService) materialize(details []*AppointmentDetail) []*AppointmentDetail {
	now := s.clock.Now()
	out := make([]*AppointmentDetail, len(details))
	for i, d := range details {
		m, _ := CheckAndComplete(d, now)
		out[i] = &m
	}
	return out
}

func (s *AppointmentService) get(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Dependencyf(err, "loading appointment")
	}
	if detail == nil {
		return nil, fault.NotFoundf("appointment %s not found", id)
	}
	return detail, nil
}

func (s *AppointmentService) participant(actor auth.Actor, detail *AppointmentDetail) bool {
	return actor.IsAdmin() ||
		actor.ID == detail.PatientID.String() ||
		actor.ID == detail.DoctorID.String()
}

// Get returns one appointment, status materialized, to its participants.
func (s *AppointmentService) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.participant(actor, detail) {
		return nil, fault.Forbiddenf("not a party to this appointment")
	}
	m, _ := CheckAndComplete(detail, s.clock.Now())
	return &m, nil
}

func (s *AppointmentService) ByDoctor(ctx context.Context, actor auth.Actor, doctorID uuid.UUID) ([]*AppointmentDetail, error) {
	if actor.Role == auth.RoleDoctor && actor.ID != doctorID.String() {
		return nil, fault.Forbiddenf("doctors may only view their own appointments")
	}
	details, err := s.appts.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fault.Dependencyf(err, "listing appointments")
	}
	return s.materialize(details), nil
}

func (s *AppointmentService) ByPatient(ctx context.Context, actor auth.Actor, patientID uuid.UUID) ([]*AppointmentDetail, error) {
	if actor.Role == auth.RolePatient && actor.ID != patientID.String() {
		return nil, fault.Forbiddenf("patients may only view their own appointments")
	}
	details, err := s.appts.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fault.Dependencyf(err, "listing appointments")
	}
	return s.materialize(details), nil
}

func (s *AppointmentService) All(ctx context.Context, limit, offset int) ([]*AppointmentDetail, int, error) {
	details, total, err := s.appts.ListPage(ctx, limit, offset)
	if err != nil {
		return nil, 0, fault.Dependencyf(err, "listing appointments")
	}
	return s.materialize(details), total, nil
}

func (s *AppointmentService) Recent(ctx context.Context, n int) ([]*AppointmentDetail, error) {
	if n <= 0 {
		n = 5
	}
	details, err := s.appts.ListRecent(ctx, n)
	if err != nil {
		return nil, fault.Dependencyf(err, "listing recent appointments")
	}
	return s.materialize(details), nil
}

// CompleteDue is the sweep entry point: it persists the Completed status
// for every Confirmed appointment whose slot has ended, and notifies the
// parties once per true transition. One appointment's failure does not stop
// the rest of the pass.
func (s *AppointmentService) CompleteDue(ctx context.Context) (int, error) {
	details, err := s.appts.ListConfirmed(ctx)
	if err != nil {
		return 0, fault.Dependencyf(err, "listing confirmed appointments")
	}
	now := s.clock.Now()
	completed := 0
	for _, detail := range details {
		m, transitioned := CheckAndComplete(detail, now)
		if !transitioned {
			continue
		}
		if err := s.appts.UpdateStatus(ctx, m.ID, StatusCompleted, ""); err != nil {
			s.logger.Error().Err(err).Stringer("appointment_id", m.ID).Msg("sweep: persisting completion failed")
			continue
		}
		s.notifyCompleted(ctx, &m)
		s.dash.PushAfterChange(ctx, m.DoctorID, m.PatientID, uuid.Nil)
		completed++
	}
	return completed, nil
}
