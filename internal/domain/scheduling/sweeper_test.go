package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/mailer"
	"github.com/medibook/medibook/pkg/timefmt"
)

// notifierGuard answers ReminderExists from the notifications the mock
// notifier has already recorded, the same coupling the real store has.
type notifierGuard struct {
	notifier *mockNotifier
}

func (g *notifierGuard) ReminderExists(_ context.Context, userID uuid.UUID, reminderType string, targetID uuid.UUID) (bool, error) {
	g.notifier.mu.Lock()
	defer g.notifier.mu.Unlock()
	for _, c := range g.notifier.calls {
		if c.UserID == userID && c.Type == reminderType && c.Target == targetID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fixture) newSweeper() *Sweeper {
	return NewSweeper(
		f.apptSvc,
		f.appts,
		&notifierGuard{notifier: f.notifier},
		f.notifier,
		mailer.New(f.sender, mailer.NewTemplateEngine(), zerolog.Nop()),
		mockDirectory{},
		f.clock,
		time.Minute,
		time.Hour,
		zerolog.Nop(),
	)
}

func TestReminderSweepSendsOnceInWindow(t *testing.T) {
	f := newFixture()
	doctorID := uuid.New()
	patientID := uuid.New()

	// clock is 2025-06-09 10:00, slot starts 2025-06-10 10:30, 24.5h out
	slot := f.mustCreateSlot(t, doctorID, "2025-06-10", "10:30 AM", "11:00 AM")
	detail, err := f.apptSvc.Book(context.Background(), patientActor(patientID), slot.ID, "")
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	sweeper := f.newSweeper()
	mailsBefore := len(f.sender.Calls())

	sweeper.RunReminderSweep(context.Background())

	reminders := 0
	for _, c := range f.notifier.calls {
		if c.Type == NotifyTypeReminder && c.Target == detail.ID {
			reminders++
		}
	}
	if reminders != 2 {
		t.Fatalf("reminder notifications = %d, want 2 (patient and doctor)", reminders)
	}
	if got := len(f.sender.Calls()) - mailsBefore; got != 2 {
		t.Fatalf("reminder emails = %d, want 2", got)
	}

	// rerun an hour later, still inside the window: must be a no-op
	f.clock.Advance(time.Hour)
	sweeper.RunReminderSweep(context.Background())

	reminders = 0
	for _, c := range f.notifier.calls {
		if c.Type == NotifyTypeReminder && c.Target == detail.ID {
			reminders++
		}
	}
	if reminders != 2 {
		t.Fatalf("reminder notifications after rerun = %d, want still 2", reminders)
	}
}

func TestReminderSweepIgnoresOutOfWindow(t *testing.T) {
	f := newFixture()
	doctorID := uuid.New()

	// 48h out, not due for a reminder yet
	slot := f.mustCreateSlot(t, doctorID, "2025-06-11", "10:00 AM", "10:30 AM")
	if _, err := f.apptSvc.Book(context.Background(), patientActor(uuid.New()), slot.ID, ""); err != nil {
		t.Fatalf("book: %v", err)
	}

	f.newSweeper().RunReminderSweep(context.Background())

	for _, c := range f.notifier.calls {
		if c.Type == NotifyTypeReminder {
			t.Fatalf("unexpected reminder for an appointment outside the window")
		}
	}
}

func TestReminderSweepSkipsCanceled(t *testing.T) {
	f := newFixture()
	patientID := uuid.New()
	slot := f.mustCreateSlot(t, uuid.New(), "2025-06-10", "10:30 AM", "11:00 AM")
	detail, _ := f.apptSvc.Book(context.Background(), patientActor(patientID), slot.ID, "")
	if err := f.apptSvc.Cancel(context.Background(), patientActor(patientID), detail.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	f.newSweeper().RunReminderSweep(context.Background())

	for _, c := range f.notifier.calls {
		if c.Type == NotifyTypeReminder {
			t.Fatal("reminder sent for canceled appointment")
		}
	}
}

func TestStatusSweepThroughSweeper(t *testing.T) {
	f := newFixture()
	slot := f.mustCreateSlot(t, uuid.New(), "2025-06-10", "09:00 AM", "09:30 AM")
	detail, _ := f.apptSvc.Book(context.Background(), patientActor(uuid.New()), slot.ID, "")

	f.clock.Set(time.Date(2025, 6, 10, 9, 31, 0, 0, timefmt.OperatingZone))
	f.newSweeper().RunStatusSweep(context.Background())

	if f.appts.appts[detail.ID].Status != StatusCompleted {
		t.Fatal("status sweep did not complete the elapsed appointment")
	}
}

func TestSweeperStartStopsOnCancel(t *testing.T) {
	f := newFixture()
	sweeper := f.newSweeper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}
