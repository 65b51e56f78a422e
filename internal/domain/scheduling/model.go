package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Confirmed moves to Completed when the slot's end
// time elapses, or to Canceled by explicit action. Both are terminal.
const (
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

// Slot maps to the slot table. Date is a calendar day ("2006-01-02");
// StartTime and EndTime are stored in the canonical 12-hour display form
// ("09:00 AM"). StartAt and EndAt are the same boundaries resolved to
// instants in the clinic zone, denormalized for range queries.
type Slot struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      string    `db:"date" json:"date"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	StartAt   time.Time `db:"start_at" json:"-"`
	EndAt     time.Time `db:"end_at" json:"-"`
	IsBooked  bool      `db:"is_booked" json:"is_booked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Appointment maps to the appointment table. A slot hosts at most one live
// (confirmed or completed) appointment.
type Appointment struct {
	ID            uuid.UUID `db:"id" json:"id"`
	SlotID        uuid.UUID `db:"slot_id" json:"slot_id"`
	DoctorID      uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	Status        string    `db:"status" json:"status"`
	Notes         string    `db:"notes" json:"notes,omitempty"`
	CancelReason  string    `db:"cancel_reason" json:"cancel_reason,omitempty"`
	DoctorComment string    `db:"doctor_comment" json:"doctor_comment,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Live reports whether the appointment still occupies its slot.
func (a *Appointment) Live() bool {
	return a.Status == StatusConfirmed || a.Status == StatusCompleted
}

// AppointmentDetail pairs an appointment with its slot for display and
// time-based checks.
type AppointmentDetail struct {
	Appointment
	Slot Slot `json:"slot"`
}
