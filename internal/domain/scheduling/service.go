package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicare/voiceclinic/internal/domain/clinic"
	"github.com/medicare/voiceclinic/internal/platform/outcome"
)

// Service is the caller-facing scheduling API. Every method returns a tagged
// outcome and never an error.
type Service struct {
	resolver *Resolver
	calendar *Calendar
	machine  *Machine
	tests    clinic.TestRepository
	notify   NotificationSink
	logger   zerolog.Logger
}

func NewService(resolver *Resolver, calendar *Calendar, machine *Machine, tests clinic.TestRepository, notify NotificationSink, logger zerolog.Logger) *Service {
	if notify == nil {
		notify = noopSink{}
	}
	return &Service{
		resolver: resolver,
		calendar: calendar,
		machine:  machine,
		tests:    tests,
		notify:   notify,
		logger:   logger,
	}
}

// finish logs the operation result and converts it into an Outcome.
func (s *Service) finish(op string, fields map[string]interface{}, result interface{}, err error) outcome.Outcome {
	if err == nil {
		s.logger.Info().Str("op", op).Fields(fields).Msg("scheduling operation succeeded")
		return outcome.Success(result)
	}

	kind := outcome.KindOf(err)
	var ev *zerolog.Event
	if kind == outcome.StorageError {
		ev = s.logger.Error().Err(err)
	} else {
		ev = s.logger.Warn().Str("reason", err.Error())
	}
	ev.Str("op", op).Str("kind", string(kind)).Fields(fields).Msg("scheduling operation failed")
	return outcome.FromError(err)
}

// -- Availability --

type AvailabilityQuery struct {
	DoctorName string
	BranchID   *int64
	Date       time.Time
}

type AvailabilityResult struct {
	Doctor            string   `json:"doctor"`
	Branch            string   `json:"branch,omitempty"`
	Date              string   `json:"date"`
	AvailableSlots    []string `json:"available_slots"`
	Message           string   `json:"message,omitempty"`
	SystemInstruction string   `json:"system_instruction,omitempty"`
}

const slotsInstruction = "STOP. Read these slots to the user and wait for them to pick one. DO NOT call book_appointment yet."

func (s *Service) Availability(ctx context.Context, q AvailabilityQuery) outcome.Outcome {
	fields := map[string]interface{}{"doctor_name": q.DoctorName, "date": q.Date.Format(dateLayout)}

	doctor, err := s.resolver.Resolve(ctx, q.DoctorName, q.BranchID)
	if err != nil {
		return s.finish("availability", fields, nil, err)
	}
	fields["doctor_id"] = doctor.ID

	day, err := s.calendar.AvailableSlots(ctx, doctor.ID, q.Date)
	if err != nil {
		return s.finish("availability", fields, nil, err)
	}

	res := &AvailabilityResult{
		Doctor:         doctor.Name,
		Branch:         doctor.BranchName,
		Date:           day.Date.Format(dateLayout),
		AvailableSlots: day.Slots,
	}
	switch {
	case day.Closed:
		res.Message = "The clinic is closed on Sundays."
	case len(day.Slots) == 0:
		res.Message = fmt.Sprintf("%s is fully booked on %s.", doctor.Name, res.Date)
	default:
		res.SystemInstruction = slotsInstruction
	}
	return s.finish("availability", fields, res, nil)
}

// -- Book --

type BookCommand struct {
	PatientID  int64
	DoctorName string
	BranchID   *int64
	At         time.Time
	Audit      clinic.Audit
}

type BookResult struct {
	AppointmentID int64  `json:"appointment_id"`
	Status        Status `json:"status"`
	Doctor        string `json:"doctor"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Message       string `json:"message"`
}

func (s *Service) Book(ctx context.Context, cmd BookCommand) outcome.Outcome {
	fields := map[string]interface{}{"patient_id": cmd.PatientID, "at": cmd.At.Format(stampLayout)}

	// The closed-day rule holds whatever the doctor or patient.
	if err := s.machine.CheckInstant(cmd.At); err != nil {
		return s.finish("book", fields, nil, err)
	}
	doctor, err := s.resolver.Resolve(ctx, cmd.DoctorName, cmd.BranchID)
	if err != nil {
		return s.finish("book", fields, nil, err)
	}
	fields["doctor_id"] = doctor.ID

	b, err := s.machine.Create(ctx, cmd.PatientID, doctor.ID, cmd.At, cmd.Audit)
	if err != nil {
		return s.finish("book", fields, nil, err)
	}

	a := b.Appointment
	date, clock := a.At.Format(dateLayout), a.At.Format(clockLayout)
	if email := b.Patient.EmailAddress(); email != "" {
		s.notify.NotifyBooked(ctx, AppointmentNotice{
			Email:         email,
			PatientID:     b.Patient.ID,
			PatientName:   b.Patient.Name,
			AppointmentID: a.ID,
			DoctorName:    b.Doctor.Name,
			When:          date + " " + clock,
		})
	}
	fields["appointment_id"] = a.ID
	return s.finish("book", fields, &BookResult{
		AppointmentID: a.ID,
		Status:        a.Status,
		Doctor:        b.Doctor.Name,
		Date:          date,
		Time:          clock,
		Message:       fmt.Sprintf("Appointment confirmed with %s on %s at %s.", b.Doctor.Name, date, clock),
	}, nil)
}

// -- Reschedule --

type RescheduleCommand struct {
	PatientID int64
	At        time.Time
	// DoctorName, when set, moves the appointment to another doctor.
	DoctorName string
	BranchID   *int64
	Audit      clinic.Audit
}

type RescheduleResult struct {
	AppointmentID int64  `json:"appointment_id"`
	Status        Status `json:"status"`
	Doctor        string `json:"doctor"`
	PreviousTime  string `json:"previous_time"`
	NewTime       string `json:"new_time"`
	Message       string `json:"message"`
}

func (s *Service) Reschedule(ctx context.Context, cmd RescheduleCommand) outcome.Outcome {
	fields := map[string]interface{}{"patient_id": cmd.PatientID, "at": cmd.At.Format(stampLayout)}

	if err := s.machine.CheckInstant(cmd.At); err != nil {
		return s.finish("reschedule", fields, nil, err)
	}
	var doctorID *int64
	if strings.TrimSpace(cmd.DoctorName) != "" {
		doctor, err := s.resolver.Resolve(ctx, cmd.DoctorName, cmd.BranchID)
		if err != nil {
			return s.finish("reschedule", fields, nil, err)
		}
		doctorID = &doctor.ID
		fields["doctor_id"] = doctor.ID
	}

	b, err := s.machine.Reschedule(ctx, cmd.PatientID, cmd.At, doctorID, cmd.Audit)
	if err != nil {
		return s.finish("reschedule", fields, nil, err)
	}

	a := b.Appointment
	previous := b.Previous.Format(stampLayout)
	newTime := a.At.Format(stampLayout)
	if email := b.Patient.EmailAddress(); email != "" {
		s.notify.NotifyRescheduled(ctx, AppointmentNotice{
			Email:         email,
			PatientID:     b.Patient.ID,
			PatientName:   b.Patient.Name,
			AppointmentID: a.ID,
			DoctorName:    b.Doctor.Name,
			When:          newTime,
			Previous:      previous,
		})
	}
	fields["appointment_id"] = a.ID
	return s.finish("reschedule", fields, &RescheduleResult{
		AppointmentID: a.ID,
		Status:        a.Status,
		Doctor:        b.Doctor.Name,
		PreviousTime:  previous,
		NewTime:       newTime,
		Message: fmt.Sprintf("Appointment successfully moved to %s at %s.",
			a.At.Format(dateLayout), a.At.Format(clockLayout)),
	}, nil)
}

// -- Cancel --

type CancelCommand struct {
	PatientID int64
	Audit     clinic.Audit
}

type CancelResult struct {
	AppointmentID int64  `json:"appointment_id"`
	Status        Status `json:"status"`
	Time          string `json:"time"`
	Message       string `json:"message"`
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) outcome.Outcome {
	fields := map[string]interface{}{"patient_id": cmd.PatientID}

	b, err := s.machine.Cancel(ctx, cmd.PatientID, cmd.Audit)
	if err != nil {
		return s.finish("cancel", fields, nil, err)
	}

	a := b.Appointment
	when := a.At.Format(stampLayout)
	if email := b.Patient.EmailAddress(); email != "" {
		s.notify.NotifyCancelled(ctx, AppointmentNotice{
			Email:         email,
			PatientID:     b.Patient.ID,
			PatientName:   b.Patient.Name,
			AppointmentID: a.ID,
			DoctorName:    b.Doctor.Name,
			When:          when,
		})
	}
	fields["appointment_id"] = a.ID
	return s.finish("cancel", fields, &CancelResult{
		AppointmentID: a.ID,
		Status:        a.Status,
		Time:          when,
		Message:       fmt.Sprintf("Appointment on %s has been cancelled.", when),
	}, nil)
}

// -- Diagnostic tests --

type BookTestCommand struct {
	PatientID int64
	TestName  string
	At        time.Time
}

type TestBookingResult struct {
	BookingID string     `json:"booking_id"`
	Status    TestStatus `json:"status"`
	Test      string     `json:"test"`
	Date      string     `json:"date"`
	Time      string     `json:"time"`
	Message   string     `json:"message"`
}

func (s *Service) BookTest(ctx context.Context, cmd BookTestCommand) outcome.Outcome {
	fields := map[string]interface{}{"patient_id": cmd.PatientID, "test_name": cmd.TestName}

	test, err := s.tests.FindByName(ctx, strings.TrimSpace(cmd.TestName), "")
	if errors.Is(err, clinic.ErrNotFound) {
		return s.finish("book_test", fields, nil,
			outcome.New(outcome.NotFound, fmt.Sprintf("Test '%s' not found.", cmd.TestName)))
	}
	if err != nil {
		return s.finish("book_test", fields, nil, outcome.Storage(err))
	}
	fields["test_id"] = test.ID

	b, err := s.machine.BookTest(ctx, cmd.PatientID, test.ID, cmd.At)
	if err != nil {
		return s.finish("book_test", fields, nil, err)
	}

	ta := b.Appointment
	date, clock := ta.At.Format(dateLayout), ta.At.Format(clockLayout)
	bookingID := fmt.Sprintf("T-%d", ta.ID)
	if email := b.Patient.EmailAddress(); email != "" {
		s.notify.NotifyTestBooked(ctx, TestNotice{
			Email:       email,
			PatientName: b.Patient.Name,
			TestName:    b.Test.Name,
			When:        date + " " + clock,
			BookingID:   bookingID,
		})
	}
	return s.finish("book_test", fields, &TestBookingResult{
		BookingID: bookingID,
		Status:    ta.Status,
		Test:      b.Test.Name,
		Date:      date,
		Time:      clock,
		Message: fmt.Sprintf("Confirmed! %s booked for %s at %s. Your booking ID is %s.",
			b.Test.Name, date, clock, bookingID),
	}, nil)
}
