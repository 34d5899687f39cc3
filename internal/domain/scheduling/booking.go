package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/medicare/voiceclinic/internal/domain/clinic"
	"github.com/medicare/voiceclinic/internal/platform/lock"
	"github.com/medicare/voiceclinic/internal/platform/outcome"
)

// Machine owns appointment state transitions. Every slot-acquiring operation
// holds the doctor's lock around a single transaction, and the store's unique
// index on active (doctor, instant) pairs backs both up.
type Machine struct {
	tx        Transactor
	locker    lock.Locker
	appts     AppointmentRepository
	testAppts TestAppointmentRepository
	doctors   clinic.DoctorRepository
	patients  clinic.PatientRepository
	tests     clinic.TestRepository
	day       DayTemplate
	now       func() time.Time
}

type MachineConfig struct {
	Tx               Transactor
	Locker           lock.Locker
	Appointments     AppointmentRepository
	TestAppointments TestAppointmentRepository
	Doctors          clinic.DoctorRepository
	Patients         clinic.PatientRepository
	Tests            clinic.TestRepository
	Day              DayTemplate
	Now              func() time.Time
}

func NewMachine(cfg MachineConfig) *Machine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Day.Step == 0 {
		cfg.Day = ClinicDay
	}
	return &Machine{
		tx:        cfg.Tx,
		locker:    cfg.Locker,
		appts:     cfg.Appointments,
		testAppts: cfg.TestAppointments,
		doctors:   cfg.Doctors,
		patients:  cfg.Patients,
		tests:     cfg.Tests,
		day:       cfg.Day,
		now:       cfg.Now,
	}
}

// Booking is the state after a successful transition.
type Booking struct {
	Appointment *Appointment
	Patient     *clinic.Patient
	Doctor      *clinic.Doctor
	// Previous is the instant before a reschedule.
	Previous time.Time
}

var (
	errClosed     = outcome.New(outcome.ClosedDay, "The clinic is closed on Sundays.")
	errOffGrid    = outcome.New(outcome.InvalidTemporalInput, "Appointments start on the hour or half hour. Please pick a time like 09:00 or 09:30.")
	errOffHours   = outcome.New(outcome.InvalidTemporalInput, "The clinic sees patients from 09:00 to 17:00. Please pick a time in that window.")
	errSlotTaken  = outcome.New(outcome.Conflict, "That time slot is already taken. Please pick another time.")
	errNewTaken   = outcome.New(outcome.Conflict, "That new time slot is already taken. Please pick another time.")
	errNoPatient  = outcome.New(outcome.NotFound, "I can't find your Patient ID. Please register first.")
	errNoDoctor   = outcome.New(outcome.NotFound, "I couldn't find that doctor.")
	errNoUpcoming = outcome.New(outcome.NotFound, "I couldn't find any upcoming appointments for your ID.")
	errNoActive   = outcome.New(outcome.NotFound, "I couldn't find any active appointments for that ID.")
)

// CheckInstant rejects instants the calendar cannot hold: off the slot grid,
// on the closed weekday, or outside opening hours, in that order.
func (m *Machine) CheckInstant(at time.Time) error {
	if !m.day.Canonical(at) {
		return errOffGrid
	}
	if m.day.IsClosed(at) {
		return errClosed
	}
	if !m.day.Within(at) {
		return errOffHours
	}
	return nil
}

func lockKey(doctorID int64) string {
	return "doctor:" + strconv.FormatInt(doctorID, 10)
}

// withDoctor runs fn in a transaction while holding the doctor's lock. The
// lock is always taken before the transaction begins.
func (m *Machine) withDoctor(ctx context.Context, doctorID int64, fn func(ctx context.Context) error) error {
	release, err := m.locker.Lock(ctx, lockKey(doctorID))
	if err != nil {
		return outcome.Storage(fmt.Errorf("lock doctor %d: %w", doctorID, err))
	}
	defer release()
	return m.inTx(ctx, fn)
}

func (m *Machine) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := m.tx.WithinTx(ctx, fn)
	if err == nil {
		return nil
	}
	var typed *outcome.Error
	if errors.As(err, &typed) {
		return err
	}
	return outcome.Storage(err)
}

func (m *Machine) loadDoctor(ctx context.Context, id int64) (*clinic.Doctor, error) {
	d, err := m.doctors.GetByID(ctx, id)
	if errors.Is(err, clinic.ErrNotFound) {
		return nil, errNoDoctor
	}
	if err != nil {
		return nil, outcome.Storage(err)
	}
	return d, nil
}

func (m *Machine) loadPatient(ctx context.Context, id int64) (*clinic.Patient, error) {
	p, err := m.patients.GetByID(ctx, id)
	if errors.Is(err, clinic.ErrNotFound) {
		return nil, errNoPatient
	}
	if err != nil {
		return nil, outcome.Storage(err)
	}
	return p, nil
}

// Create books a new appointment in SCHEDULED.
func (m *Machine) Create(ctx context.Context, patientID, doctorID int64, at time.Time, audit clinic.Audit) (*Booking, error) {
	if err := m.CheckInstant(at); err != nil {
		return nil, err
	}
	doctor, err := m.loadDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	patient, err := m.loadPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	actor := audit.ActorID
	appt := &Appointment{
		PatientID: patient.ID,
		DoctorID:  doctor.ID,
		At:        at,
		CreatedBy: &actor,
		CreatedIP: strPtr(audit.IP),
		CreatedAt: m.now(),
	}
	err = m.withDoctor(ctx, doctor.ID, func(ctx context.Context) error {
		if _, err := m.appts.FindActiveAt(ctx, doctor.ID, at, 0); err == nil {
			return errSlotTaken
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if !CanTransition("", StatusScheduled) {
			return fmt.Errorf("invalid transition to %s", StatusScheduled)
		}
		appt.Status = StatusScheduled
		if err := m.appts.Insert(ctx, appt); err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return errSlotTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Booking{Appointment: appt, Patient: patient, Doctor: doctor}, nil
}

// Reschedule moves the patient's earliest upcoming active appointment to at.
// When doctorID is set the appointment also moves to that doctor.
func (m *Machine) Reschedule(ctx context.Context, patientID int64, at time.Time, doctorID *int64, audit clinic.Audit) (*Booking, error) {
	if err := m.CheckInstant(at); err != nil {
		return nil, err
	}

	target, err := m.appts.NextActive(ctx, patientID, m.now())
	if errors.Is(err, ErrNotFound) {
		return nil, errNoUpcoming
	}
	if err != nil {
		return nil, outcome.Storage(err)
	}

	destID := target.DoctorID
	if doctorID != nil {
		destID = *doctorID
	}
	doctor, err := m.loadDoctor(ctx, destID)
	if err != nil {
		return nil, err
	}

	var booking *Booking
	err = m.withDoctor(ctx, destID, func(ctx context.Context) error {
		appt, err := m.appts.GetForUpdate(ctx, target.ID)
		if errors.Is(err, ErrNotFound) || (err == nil && !appt.Status.Active()) {
			// Cancelled or moved away between selection and lock.
			return errNoUpcoming
		}
		if err != nil {
			return err
		}

		if _, err := m.appts.FindActiveAt(ctx, destID, at, appt.ID); err == nil {
			return errNewTaken
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if !CanTransition(appt.Status, StatusRescheduled) {
			return errNoUpcoming
		}
		previous := appt.At
		now := m.now()
		actor := audit.ActorID
		appt.DoctorID = destID
		appt.At = at
		appt.Status = StatusRescheduled
		appt.ModifiedBy = &actor
		appt.ModifiedIP = strPtr(audit.IP)
		appt.ModifiedAt = &now
		if err := m.appts.Update(ctx, appt); err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return errNewTaken
			}
			return err
		}

		patient, err := m.loadPatient(ctx, appt.PatientID)
		if err != nil {
			return err
		}
		booking = &Booking{Appointment: appt, Patient: patient, Doctor: doctor, Previous: previous}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Cancel cancels the patient's active appointment with the latest instant,
// past or future. Cancelled appointments are never reactivated.
func (m *Machine) Cancel(ctx context.Context, patientID int64, audit clinic.Audit) (*Booking, error) {
	var booking *Booking
	err := m.inTx(ctx, func(ctx context.Context) error {
		appt, err := m.appts.LatestActive(ctx, patientID)
		if errors.Is(err, ErrNotFound) {
			return errNoActive
		}
		if err != nil {
			return err
		}
		if !CanTransition(appt.Status, StatusCancelled) {
			return errNoActive
		}

		now := m.now()
		actor := audit.ActorID
		appt.Status = StatusCancelled
		appt.ModifiedBy = &actor
		appt.ModifiedIP = strPtr(audit.IP)
		appt.ModifiedAt = &now
		if err := m.appts.Update(ctx, appt); err != nil {
			return err
		}

		patient, err := m.loadPatient(ctx, appt.PatientID)
		if err != nil {
			return err
		}
		doctor, err := m.loadDoctor(ctx, appt.DoctorID)
		if err != nil {
			return err
		}
		booking = &Booking{Appointment: appt, Patient: patient, Doctor: doctor}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// TestBooking is a confirmed diagnostic test appointment.
type TestBooking struct {
	Appointment *TestAppointment
	Test        *clinic.DiagnosticTest
	Patient     *clinic.Patient
}

// BookTest confirms a diagnostic test. Tests are not bound to the doctor
// calendar, so no slot, weekday or conflict rules apply.
func (m *Machine) BookTest(ctx context.Context, patientID, testID int64, at time.Time) (*TestBooking, error) {
	test, err := m.tests.GetByID(ctx, testID)
	if errors.Is(err, clinic.ErrNotFound) {
		return nil, outcome.New(outcome.NotFound, "I couldn't find that test.")
	}
	if err != nil {
		return nil, outcome.Storage(err)
	}
	if !test.Available {
		return nil, outcome.New(outcome.Unavailable, fmt.Sprintf("Sorry, %s is not available here.", test.Name))
	}
	patient, err := m.patients.GetByID(ctx, patientID)
	if errors.Is(err, clinic.ErrNotFound) {
		return nil, outcome.New(outcome.NotFound, "Invalid Patient ID.")
	}
	if err != nil {
		return nil, outcome.Storage(err)
	}

	ta := &TestAppointment{
		PatientID: patient.ID,
		TestID:    test.ID,
		At:        at,
		Status:    TestConfirmed,
		CreatedAt: m.now(),
	}
	if err := m.inTx(ctx, func(ctx context.Context) error {
		return m.testAppts.Insert(ctx, ta)
	}); err != nil {
		return nil, err
	}
	return &TestBooking{Appointment: ta, Test: test, Patient: patient}, nil
}
