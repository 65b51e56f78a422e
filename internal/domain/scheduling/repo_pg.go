package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Slot Repository ===========

type slotRepoPG struct{ pool *pgxpool.Pool }

func NewSlotRepoPG(pool *pgxpool.Pool) SlotRepository { return &slotRepoPG{pool: pool} }

const slotCols = `id, doctor_id, date, start_time, end_time, start_at, end_at, is_booked, created_at`

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	err := row.Scan(&s.ID, &s.DoctorID, &s.Date, &s.StartTime, &s.EndTime,
		&s.StartAt, &s.EndAt, &s.IsBooked, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &s, err
}

func (r *slotRepoPG) Create(ctx context.Context, s *Slot) error {
	s.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO slot (id, doctor_id, date, start_time, end_time, start_at, end_at, is_booked)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.DoctorID, s.Date, s.StartTime, s.EndTime, s.StartAt, s.EndAt, s.IsBooked)
	return err
}

func (r *slotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return scanSlot(r.pool.QueryRow(ctx, `SELECT `+slotCols+` FROM slot WHERE id = $1`, id))
}

func (r *slotRepoPG) Update(ctx context.Context, s *Slot) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE slot SET date=$2, start_time=$3, end_time=$4, start_at=$5, end_at=$6
		WHERE id = $1`,
		s.ID, s.Date, s.StartTime, s.EndTime, s.StartAt, s.EndAt)
	return err
}

func (r *slotRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM slot WHERE id = $1`, id)
	return err
}

func (r *slotRepoPG) listSlots(ctx context.Context, query string, args ...interface{}) ([]*Slot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []*Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.ID, &s.DoctorID, &s.Date, &s.StartTime, &s.EndTime,
			&s.StartAt, &s.EndAt, &s.IsBooked, &s.CreatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, &s)
	}
	return slots, rows.Err()
}

func (r *slotRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Slot, error) {
	return r.listSlots(ctx,
		`SELECT `+slotCols+` FROM slot WHERE doctor_id = $1 ORDER BY start_at`, doctorID)
}

func (r *slotRepoPG) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]*Slot, error) {
	return r.listSlots(ctx,
		`SELECT `+slotCols+` FROM slot WHERE doctor_id = $1 AND date = $2 ORDER BY start_at`,
		doctorID, date)
}

func (r *slotRepoPG) ListAvailable(ctx context.Context, doctorID uuid.UUID, fromDate string) ([]*Slot, error) {
	return r.listSlots(ctx,
		`SELECT `+slotCols+` FROM slot
		 WHERE doctor_id = $1 AND date >= $2 AND NOT is_booked
		 ORDER BY start_at`,
		doctorID, fromDate)
}

func (r *slotRepoPG) MarkBooked(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE slot SET is_booked = TRUE WHERE id = $1 AND NOT is_booked`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *slotRepoPG) Release(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE slot SET is_booked = FALSE WHERE id = $1`, id)
	return err
}

func (r *slotRepoPG) ReleaseStale(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE slot SET is_booked = FALSE
		WHERE is_booked AND NOT EXISTS (
			SELECT 1 FROM appointment a
			WHERE a.slot_id = slot.id AND a.status IN ($1, $2)
		)`, StatusConfirmed, StatusCompleted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// =========== Appointment Repository ===========

type apptRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository { return &apptRepoPG{pool: pool} }

const apptJoinCols = `a.id, a.slot_id, a.doctor_id, a.patient_id, a.status, a.notes,
	a.cancel_reason, a.doctor_comment, a.created_at,
	s.id, s.doctor_id, s.date, s.start_time, s.end_time, s.start_at, s.end_at, s.is_booked, s.created_at`

const apptJoin = ` FROM appointment a JOIN slot s ON s.id = a.slot_id `

func scanApptDetail(row pgx.Row) (*AppointmentDetail, error) {
	var d AppointmentDetail
	err := row.Scan(&d.ID, &d.SlotID, &d.DoctorID, &d.PatientID, &d.Status, &d.Notes,
		&d.CancelReason, &d.DoctorComment, &d.CreatedAt,
		&d.Slot.ID, &d.Slot.DoctorID, &d.Slot.Date, &d.Slot.StartTime, &d.Slot.EndTime,
		&d.Slot.StartAt, &d.Slot.EndAt, &d.Slot.IsBooked, &d.Slot.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return &d, err
}

func (r *apptRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = StatusConfirmed
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment (id, slot_id, doctor_id, patient_id, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.SlotID, a.DoctorID, a.PatientID, a.Status, a.Notes)
	return err
}

func (r *apptRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	return scanApptDetail(r.pool.QueryRow(ctx,
		`SELECT `+apptJoinCols+apptJoin+`WHERE a.id = $1`, id))
}

func (r *apptRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status, cancelReason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE appointment SET status = $2, cancel_reason = $3 WHERE id = $1`,
		id, status, cancelReason)
	return err
}

func (r *apptRepoPG) UpdateComment(ctx context.Context, id uuid.UUID, comment string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE appointment SET doctor_comment = $2 WHERE id = $1`, id, comment)
	return err
}

func (r *apptRepoPG) listDetails(ctx context.Context, query string, args ...interface{}) ([]*AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []*AppointmentDetail
	for rows.Next() {
		var d AppointmentDetail
		if err := rows.Scan(&d.ID, &d.SlotID, &d.DoctorID, &d.PatientID, &d.Status, &d.Notes,
			&d.CancelReason, &d.DoctorComment, &d.CreatedAt,
			&d.Slot.ID, &d.Slot.DoctorID, &d.Slot.Date, &d.Slot.StartTime, &d.Slot.EndTime,
			&d.Slot.StartAt, &d.Slot.EndAt, &d.Slot.IsBooked, &d.Slot.CreatedAt); err != nil {
			return nil, err
		}
		details = append(details, &d)
	}
	return details, rows.Err()
}

func (r *apptRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*AppointmentDetail, error) {
	return r.listDetails(ctx,
		`SELECT `+apptJoinCols+apptJoin+`WHERE a.doctor_id = $1 ORDER BY s.start_at DESC`, doctorID)
}

func (r *apptRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*AppointmentDetail, error) {
	return r.listDetails(ctx,
		`SELECT `+apptJoinCols+apptJoin+`WHERE a.patient_id = $1 ORDER BY s.start_at DESC`, patientID)
}

func (r *apptRepoPG) ListAll(ctx context.Context) ([]*AppointmentDetail, error) {
	return r.listDetails(ctx,
		`SELECT `+apptJoinCols+apptJoin+`ORDER BY a.created_at DESC`)
}

func (r *apptRepoPG) ListPage(ctx context.Context, limit, offset int) ([]*AppointmentDetail, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointment`).Scan(&total); err != nil {
		return nil, 0, err
	}
	details, err := r.listDetails(ctx,
		`SELECT `+apptJoinCols+apptJoin+`ORDER BY a.created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	return details, total, err
}

func (r *apptRepoPG) ListRecent(ctx context.Context, n int) ([]*AppointmentDetail, error) {
	return r.listDetails(ctx,
		`SELECT `+apptJoinCols+apptJoin+`ORDER BY a.created_at DESC LIMIT $1`, n)
}

func (r *apptRepoPG) ListConfirmed(ctx context.Context) ([]*AppointmentDetail, error) {
	return r.listDetails(ctx,
		`SELECT `+apptJoinCols+apptJoin+`WHERE a.status = $1`, StatusConfirmed)
}

func (r *apptRepoPG) ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]*AppointmentDetail, error) {
	return r.listDetails(ctx,
		`SELECT `+apptJoinCols+apptJoin+`WHERE a.status = $1 AND s.start_at >= $2 AND s.start_at < $3`,
		StatusConfirmed, from, to)
}
