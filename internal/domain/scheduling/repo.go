package scheduling

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("appointment not found")
	// ErrSlotTaken is returned by inserts and updates that would give a
	// doctor two active appointments at the same instant.
	ErrSlotTaken = errors.New("slot already taken")
)

type AppointmentRepository interface {
	// FindActiveOn returns the doctor's active appointments in [from, to),
	// ordered by instant.
	FindActiveOn(ctx context.Context, doctorID int64, from, to time.Time) ([]*Appointment, error)
	// FindActiveAt returns the doctor's active appointment at exactly at,
	// ignoring excludeID. ErrNotFound when the slot is free.
	FindActiveAt(ctx context.Context, doctorID int64, at time.Time, excludeID int64) (*Appointment, error)
	// NextActive returns the patient's earliest active appointment at or
	// after from.
	NextActive(ctx context.Context, patientID int64, from time.Time) (*Appointment, error)
	// LatestActive returns the patient's active appointment with the latest
	// instant, locked for update when called inside a transaction.
	LatestActive(ctx context.Context, patientID int64) (*Appointment, error)
	// GetForUpdate reads and locks one appointment.
	GetForUpdate(ctx context.Context, id int64) (*Appointment, error)
	Insert(ctx context.Context, a *Appointment) error
	Update(ctx context.Context, a *Appointment) error
}

type TestAppointmentRepository interface {
	Insert(ctx context.Context, t *TestAppointment) error
}

// Transactor runs fn inside one database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
