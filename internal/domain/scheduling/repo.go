package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SlotRepository is the persistence boundary for slots.
type SlotRepository interface {
	Create(ctx context.Context, s *Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	Update(ctx context.Context, s *Slot) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Slot, error)
	ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]*Slot, error)
	ListAvailable(ctx context.Context, doctorID uuid.UUID, fromDate string) ([]*Slot, error)

	// MarkBooked flips is_booked from false to true and reports whether
	// this caller won the flip. A false return with no error means the
	// slot was already booked.
	MarkBooked(ctx context.Context, id uuid.UUID) (bool, error)
	// Release flips is_booked back to false.
	Release(ctx context.Context, id uuid.UUID) error
	// ReleaseStale clears is_booked on slots with no live appointment and
	// returns how many were cleared.
	ReleaseStale(ctx context.Context) (int64, error)
}

// AppointmentRepository is the persistence boundary for appointments.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status, cancelReason string) error
	UpdateComment(ctx context.Context, id uuid.UUID, comment string) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*AppointmentDetail, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*AppointmentDetail, error)
	// ListAll returns every appointment; dashboard stats need the full
	// set. ListPage serves the paginated admin listing.
	ListAll(ctx context.Context) ([]*AppointmentDetail, error)
	ListPage(ctx context.Context, limit, offset int) ([]*AppointmentDetail, int, error)
	ListRecent(ctx context.Context, n int) ([]*AppointmentDetail, error)
	ListConfirmed(ctx context.Context) ([]*AppointmentDetail, error)
	// ListConfirmedStartingBetween returns confirmed appointments whose
	// slot start instant falls in [from, to).
	ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]*AppointmentDetail, error)
}
