package scheduling

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/clock"
	"github.com/medibook/medibook/internal/platform/fault"
	"github.com/medibook/medibook/pkg/timefmt"
)

// SlotInput carries the mutable fields of a slot. DoctorID is honored only
// for admin callers; doctors always operate on their own schedule.
type SlotInput struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}

// SlotService owns slot creation, mutation, and the booked-flag
// reconciliation that runs ahead of reads.
type SlotService struct {
	slots  SlotRepository
	clock  clock.Clock
	logger zerolog.Logger
}

func NewSlotService(slots SlotRepository, clk clock.Clock, logger zerolog.Logger) *SlotService {
	return &SlotService{slots: slots, clock: clk, logger: logger.With().Str("service", "slot").Logger()}
}

// ownerFor resolves which doctor a mutation targets. Doctors may only touch
// their own slots; admins act on any doctor's behalf.
func ownerFor(actor auth.Actor, requested uuid.UUID) (uuid.UUID, error) {
	switch actor.Role {
	case auth.RoleDoctor:
		id, err := uuid.Parse(actor.ID)
		if err != nil {
			return uuid.Nil, fault.Forbiddenf("unknown actor")
		}
		if requested != uuid.Nil && requested != id {
			return uuid.Nil, fault.Forbiddenf("doctors may only manage their own slots")
		}
		return id, nil
	case auth.RoleAdmin:
		if requested == uuid.Nil {
			return uuid.Nil, fault.Validationf("doctor_id is required")
		}
		return requested, nil
	default:
		return uuid.Nil, fault.Forbiddenf("only doctors and admins manage slots")
	}
}

func (s *SlotService) Create(ctx context.Context, actor auth.Actor, in SlotInput) (*Slot, error) {
	doctorID, err := ownerFor(actor, in.DoctorID)
	if err != nil {
		return nil, err
	}
	slot := &Slot{DoctorID: doctorID}
	if err := s.applyWindow(slot, in); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, slot, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, fault.Dependencyf(err, "creating slot")
	}
	return slot, nil
}

func (s *SlotService) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, in SlotInput) (*Slot, error) {
	slot, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if slot.IsBooked {
		return nil, fault.Conflictf("slot is booked and cannot be rescheduled")
	}
	if err := s.applyWindow(slot, in); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, slot, slot.ID); err != nil {
		return nil, err
	}
	if err := s.slots.Update(ctx, slot); err != nil {
		return nil, fault.Dependencyf(err, "updating slot")
	}
	return slot, nil
}

func (s *SlotService) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	slot, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	if slot.IsBooked {
		return fault.Conflictf("slot is booked and cannot be deleted")
	}
	if err := s.slots.Delete(ctx, slot.ID); err != nil {
		return fault.Dependencyf(err, "deleting slot")
	}
	return nil
}

func (s *SlotService) getOwned(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Slot, error) {
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return nil, fault.Dependencyf(err, "loading slot")
	}
	if slot == nil {
		return nil, fault.NotFoundf("slot %s not found", id)
	}
	if actor.Role == auth.RoleDoctor && actor.ID != slot.DoctorID.String() {
		return nil, fault.Forbiddenf("doctors may only manage their own slots")
	}
	return slot, nil
}

// applyWindow validates the incoming date and times and writes the
// normalized forms plus their resolved instants onto the slot.
func (s *SlotService) applyWindow(slot *Slot, in SlotInput) error {
	now := s.clock.Now()

	start, err := timefmt.Normalize(in.StartTime)
	if err != nil {
		return fault.Validationf("start_time: unrecognized time format")
	}
	end, err := timefmt.Normalize(in.EndTime)
	if err != nil {
		return fault.Validationf("end_time: unrecognized time format")
	}
	startMin, _ := timefmt.ToMinutes(start)
	endMin, _ := timefmt.ToMinutes(end)
	if startMin >= endMin {
		return fault.Validationf("start_time must be before end_time")
	}

	past, err := timefmt.BeforeToday(in.Date, now)
	if err != nil {
		return fault.Validationf("date: expected %s", timefmt.DateLayout)
	}
	if past {
		return fault.Validationf("date is in the past")
	}
	if in.Date == timefmt.Today(now) {
		future, err := timefmt.IsStrictlyFuture(in.Date, start, now)
		if err != nil {
			return fault.Validationf("date: expected %s", timefmt.DateLayout)
		}
		if !future {
			return fault.Validationf("start_time has already passed today")
		}
	}

	startAt, err := timefmt.Instant(in.Date, start)
	if err != nil {
		return fault.Validationf("date: expected %s", timefmt.DateLayout)
	}
	endAt, err := timefmt.Instant(in.Date, end)
	if err != nil {
		return fault.Validationf("date: expected %s", timefmt.DateLayout)
	}

	slot.Date = in.Date
	slot.StartTime = start
	slot.EndTime = end
	slot.StartAt = startAt
	slot.EndAt = endAt
	return nil
}

// checkOverlap rejects a candidate interval that overlaps any other slot of
// the same doctor on the same date. Back-to-back slots are allowed.
func (s *SlotService) checkOverlap(ctx context.Context, candidate *Slot, excludeID uuid.UUID) error {
	existing, err := s.slots.ListByDoctorDate(ctx, candidate.DoctorID, candidate.Date)
	if err != nil {
		return fault.Dependencyf(err, "listing slots for overlap check")
	}
	cStart, _ := timefmt.ToMinutes(candidate.StartTime)
	cEnd, _ := timefmt.ToMinutes(candidate.EndTime)
	for _, other := range existing {
		if other.ID == excludeID {
			continue
		}
		oStart, _ := timefmt.ToMinutes(other.StartTime)
		oEnd, _ := timefmt.ToMinutes(other.EndTime)
		if timefmt.Overlaps(cStart, cEnd, oStart, oEnd) {
			return fault.Conflictf("slot overlaps %s - %s", other.StartTime, other.EndTime)
		}
	}
	return nil
}

// ListByDoctor returns a doctor's full schedule, reconciling stale booked
// flags first so callers never see a slot held by a dead appointment.
func (s *SlotService) ListByDoctor(ctx context.Context, actor auth.Actor, doctorID uuid.UUID) ([]*Slot, error) {
	if actor.Role == auth.RoleDoctor && actor.ID != doctorID.String() {
		return nil, fault.Forbiddenf("doctors may only view their own schedule")
	}
	s.Reconcile(ctx)
	slots, err := s.slots.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fault.Dependencyf(err, "listing slots")
	}
	return slots, nil
}

// ListAvailable returns a doctor's unbooked slots from today onward,
// dropping today's slots whose start time has already passed.
func (s *SlotService) ListAvailable(ctx context.Context, doctorID uuid.UUID) ([]*Slot, error) {
	s.Reconcile(ctx)
	now := s.clock.Now()
	slots, err := s.slots.ListAvailable(ctx, doctorID, timefmt.Today(now))
	if err != nil {
		return nil, fault.Dependencyf(err, "listing available slots")
	}
	open := make([]*Slot, 0, len(slots))
	for _, slot := range slots {
		future, err := timefmt.IsStrictlyFuture(slot.Date, slot.StartTime, now)
		if err != nil || !future {
			continue
		}
		open = append(open, slot)
	}
	return open, nil
}

// Reconcile clears booked flags on slots with no live appointment. Failures
// are logged and swallowed: a stale flag is preferable to failing a read.
func (s *SlotService) Reconcile(ctx context.Context) {
	n, err := s.slots.ReleaseStale(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("slot reconciliation failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int64("released", n).Msg("released stale booked slots")
	}
}
