package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/domain/scheduling"
	"github.com/medibook/medibook/internal/domain/user"
	"github.com/medibook/medibook/internal/platform/clock"
	"github.com/medibook/medibook/pkg/timefmt"
)

var testNow = time.Date(2025, 6, 10, 8, 0, 0, 0, timefmt.OperatingZone)

func detail(doctorID, patientID uuid.UUID, date, start, end, status string) *scheduling.AppointmentDetail {
	return &scheduling.AppointmentDetail{
		Appointment: scheduling.Appointment{
			ID:        uuid.New(),
			SlotID:    uuid.New(),
			DoctorID:  doctorID,
			PatientID: patientID,
			Status:    status,
		},
		Slot: scheduling.Slot{
			Date:      date,
			StartTime: start,
			EndTime:   end,
		},
	}
}

func TestComputeCounts(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()
	details := []*scheduling.AppointmentDetail{
		detail(doctorID, patientID, "2025-06-10", "09:00 AM", "09:30 AM", scheduling.StatusConfirmed),
		detail(doctorID, patientID, "2025-06-11", "09:00 AM", "09:30 AM", scheduling.StatusConfirmed),
		detail(doctorID, patientID, "2025-06-09", "09:00 AM", "09:30 AM", scheduling.StatusCompleted),
		detail(doctorID, patientID, "2025-06-10", "10:00 AM", "10:30 AM", scheduling.StatusCanceled),
	}

	stats := Compute(details, testNow, uuid.Nil)
	if stats.TotalAppointments != 3 {
		t.Fatalf("total = %d, want 3 (canceled excluded)", stats.TotalAppointments)
	}
	if stats.TodayAppointments != 1 {
		t.Fatalf("today = %d, want 1", stats.TodayAppointments)
	}
	if stats.ConfirmedAppointments != 2 || stats.CompletedAppointments != 1 {
		t.Fatalf("confirmed=%d completed=%d, want 2/1", stats.ConfirmedAppointments, stats.CompletedAppointments)
	}
}

func TestComputeMaterializesElapsedAppointments(t *testing.T) {
	// confirmed in the store, but its slot ended yesterday
	d := detail(uuid.New(), uuid.New(), "2025-06-09", "09:00 AM", "09:30 AM", scheduling.StatusConfirmed)
	stats := Compute([]*scheduling.AppointmentDetail{d}, testNow, uuid.Nil)
	if stats.CompletedAppointments != 1 || stats.ConfirmedAppointments != 0 {
		t.Fatalf("elapsed appointment not counted as completed: %+v", stats)
	}
}

func TestComputeExcludesAppointment(t *testing.T) {
	keep := detail(uuid.New(), uuid.New(), "2025-06-10", "09:00 AM", "09:30 AM", scheduling.StatusConfirmed)
	drop := detail(uuid.New(), uuid.New(), "2025-06-10", "10:00 AM", "10:30 AM", scheduling.StatusConfirmed)

	stats := Compute([]*scheduling.AppointmentDetail{keep, drop}, testNow, drop.ID)
	if stats.TotalAppointments != 1 {
		t.Fatalf("total = %d, want 1 with exclusion", stats.TotalAppointments)
	}
}

// -- Service wiring --

type mockApptRepo struct {
	byDoctor  map[uuid.UUID][]*scheduling.AppointmentDetail
	byPatient map[uuid.UUID][]*scheduling.AppointmentDetail
	all       []*scheduling.AppointmentDetail
}

func (m *mockApptRepo) Create(context.Context, *scheduling.Appointment) error { return nil }
func (m *mockApptRepo) GetByID(context.Context, uuid.UUID) (*scheduling.AppointmentDetail, error) {
	return nil, nil
}
func (m *mockApptRepo) UpdateStatus(context.Context, uuid.UUID, string, string) error { return nil }
func (m *mockApptRepo) UpdateComment(context.Context, uuid.UUID, string) error        { return nil }
func (m *mockApptRepo) ListByDoctor(_ context.Context, id uuid.UUID) ([]*scheduling.AppointmentDetail, error) {
	return m.byDoctor[id], nil
}
func (m *mockApptRepo) ListByPatient(_ context.Context, id uuid.UUID) ([]*scheduling.AppointmentDetail, error) {
	return m.byPatient[id], nil
}
func (m *mockApptRepo) ListAll(context.Context) ([]*scheduling.AppointmentDetail, error) {
	return m.all, nil
}
func (m *mockApptRepo) ListPage(context.Context, int, int) ([]*scheduling.AppointmentDetail, int, error) {
	return m.all, len(m.all), nil
}
func (m *mockApptRepo) ListRecent(context.Context, int) ([]*scheduling.AppointmentDetail, error) {
	return m.all, nil
}
func (m *mockApptRepo) ListConfirmed(context.Context) ([]*scheduling.AppointmentDetail, error) {
	return nil, nil
}
func (m *mockApptRepo) ListConfirmedStartingBetween(context.Context, time.Time, time.Time) ([]*scheduling.AppointmentDetail, error) {
	return nil, nil
}

type mockUserStats struct {
	counts user.Counts
	admins []uuid.UUID
}

func (m *mockUserStats) UserCounts(context.Context) (user.Counts, error) { return m.counts, nil }
func (m *mockUserStats) AdminIDs(context.Context) ([]uuid.UUID, error)   { return m.admins, nil }

type mockPusher struct {
	mu    sync.Mutex
	calls map[string]int
}

func (m *mockPusher) Push(userID, _ string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[userID]++
}

func TestForAdminMergesUserCounts(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()
	repo := &mockApptRepo{
		all: []*scheduling.AppointmentDetail{
			detail(doctorID, patientID, "2025-06-10", "09:00 AM", "09:30 AM", scheduling.StatusConfirmed),
		},
	}
	users := &mockUserStats{counts: user.Counts{Total: 10, Verified: 8, Doctors: 3, Patients: 6}}
	svc := NewService(repo, users, &mockPusher{}, clock.NewManual(testNow), zerolog.Nop())

	stats, err := svc.ForAdmin(context.Background())
	if err != nil {
		t.Fatalf("for admin: %v", err)
	}
	if stats.Users == nil || stats.Users.Total != 10 || stats.Users.Doctors != 3 {
		t.Fatalf("user counts not merged: %+v", stats.Users)
	}
}

func TestPushAfterChangeReachesAllParties(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()
	admin1, admin2 := uuid.New(), uuid.New()

	d := detail(doctorID, patientID, "2025-06-10", "09:00 AM", "09:30 AM", scheduling.StatusConfirmed)
	repo := &mockApptRepo{
		byDoctor:  map[uuid.UUID][]*scheduling.AppointmentDetail{doctorID: {d}},
		byPatient: map[uuid.UUID][]*scheduling.AppointmentDetail{patientID: {d}},
		all:       []*scheduling.AppointmentDetail{d},
	}
	users := &mockUserStats{admins: []uuid.UUID{admin1, admin2}}
	pusher := &mockPusher{}
	svc := NewService(repo, users, pusher, clock.NewManual(testNow), zerolog.Nop())

	svc.PushAfterChange(context.Background(), doctorID, patientID, uuid.Nil)

	for _, id := range []uuid.UUID{doctorID, patientID, admin1, admin2} {
		if pusher.calls[id.String()] != 1 {
			t.Fatalf("pushes to %s = %d, want 1", id, pusher.calls[id.String()])
		}
	}
}
