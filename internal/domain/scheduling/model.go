package scheduling

import (
	"time"
)

type Status string

const (
	StatusScheduled   Status = "SCHEDULED"
	StatusRescheduled Status = "RESCHEDULED"
	StatusCancelled   Status = "CANCELLED"
)

// Active reports whether an appointment in this status occupies its slot.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusRescheduled
}

// transitions lists the allowed next states. The empty status is a booking
// that does not exist yet. Cancelled is terminal.
var transitions = map[Status][]Status{
	"":                {StatusScheduled},
	StatusScheduled:   {StatusRescheduled, StatusCancelled},
	StatusRescheduled: {StatusRescheduled, StatusCancelled},
	StatusCancelled:   nil,
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Appointment maps to the appointment table. At is wall-clock time with no
// timezone.
type Appointment struct {
	ID         int64      `db:"id" json:"id"`
	PatientID  int64      `db:"patient_id" json:"patient_id"`
	DoctorID   int64      `db:"doctor_id" json:"doctor_id"`
	At         time.Time  `db:"appointment_at" json:"appointment_at"`
	Status     Status     `db:"status" json:"status"`
	CreatedBy  *int64     `db:"created_by" json:"created_by,omitempty"`
	CreatedIP  *string    `db:"created_ip_address" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ModifiedBy *int64     `db:"modified_by" json:"modified_by,omitempty"`
	ModifiedIP *string    `db:"modified_ip_address" json:"-"`
	ModifiedAt *time.Time `db:"modified_at" json:"modified_at,omitempty"`
}

type TestStatus string

const (
	TestConfirmed TestStatus = "CONFIRMED"
	TestCancelled TestStatus = "CANCELLED"
)

// TestAppointment maps to the test_appointment table.
type TestAppointment struct {
	ID        int64      `db:"id" json:"id"`
	PatientID int64      `db:"patient_id" json:"patient_id"`
	TestID    int64      `db:"test_id" json:"test_id"`
	At        time.Time  `db:"appointment_at" json:"appointment_at"`
	Status    TestStatus `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
	stampLayout = "2006-01-02 15:04"
)

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
