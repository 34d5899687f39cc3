package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicare/voiceclinic/internal/platform/db"
)

const activeSlotConstraint = "appointment_active_slot_uq"

const activeStatuses = `status IN ('SCHEDULED', 'RESCHEDULED')`

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const apptCols = `id, patient_id, doctor_id, appointment_at, status,
	created_by, created_ip_address, created_at, modified_by, modified_ip_address, modified_at`

func (r *appointmentRepoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.At, &a.Status,
		&a.CreatedBy, &a.CreatedIP, &a.CreatedAt, &a.ModifiedBy, &a.ModifiedIP, &a.ModifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepoPG) FindActiveOn(ctx context.Context, doctorID int64, from, to time.Time) ([]*Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE doctor_id = $1 AND appointment_at >= $2 AND appointment_at < $3 AND `+activeStatuses+`
		ORDER BY appointment_at`, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("find active appointments: %w", err)
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) FindActiveAt(ctx context.Context, doctorID int64, at time.Time, excludeID int64) (*Appointment, error) {
	return r.scanAppt(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE doctor_id = $1 AND appointment_at = $2 AND id <> $3 AND `+activeStatuses+`
		LIMIT 1`, doctorID, at, excludeID))
}

func (r *appointmentRepoPG) NextActive(ctx context.Context, patientID int64, from time.Time) (*Appointment, error) {
	return r.scanAppt(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE patient_id = $1 AND appointment_at >= $2 AND `+activeStatuses+`
		ORDER BY appointment_at ASC, id ASC LIMIT 1`, patientID, from))
}

func (r *appointmentRepoPG) LatestActive(ctx context.Context, patientID int64) (*Appointment, error) {
	return r.scanAppt(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE patient_id = $1 AND `+activeStatuses+`
		ORDER BY appointment_at DESC, id DESC LIMIT 1 FOR UPDATE`, patientID))
}

func (r *appointmentRepoPG) GetForUpdate(ctx context.Context, id int64) (*Appointment, error) {
	return r.scanAppt(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE id = $1 FOR UPDATE`, id))
}

func (r *appointmentRepoPG) Insert(ctx context.Context, a *Appointment) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointment (patient_id, doctor_id, appointment_at, status,
			created_by, created_ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		a.PatientID, a.DoctorID, a.At, a.Status, a.CreatedBy, a.CreatedIP, a.CreatedAt,
	).Scan(&a.ID)
	if db.IsUniqueViolation(err, activeSlotConstraint) {
		return ErrSlotTaken
	}
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE appointment SET doctor_id = $2, appointment_at = $3, status = $4,
			modified_by = $5, modified_ip_address = $6, modified_at = $7
		WHERE id = $1`,
		a.ID, a.DoctorID, a.At, a.Status, a.ModifiedBy, a.ModifiedIP, a.ModifiedAt)
	if db.IsUniqueViolation(err, activeSlotConstraint) {
		return ErrSlotTaken
	}
	if err != nil {
		return fmt.Errorf("update appointment %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type testAppointmentRepoPG struct{ pool *pgxpool.Pool }

func NewTestAppointmentRepoPG(pool *pgxpool.Pool) TestAppointmentRepository {
	return &testAppointmentRepoPG{pool: pool}
}

func (r *testAppointmentRepoPG) Insert(ctx context.Context, t *TestAppointment) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO test_appointment (patient_id, test_id, appointment_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		t.PatientID, t.TestID, t.At, t.Status, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert test appointment: %w", err)
	}
	return nil
}
