package scheduling

import "context"

// AppointmentNotice describes a booking change for the patient. Previous is
// set for reschedules only.
type AppointmentNotice struct {
	Email         string
	PatientID     int64
	PatientName   string
	AppointmentID int64
	DoctorName    string
	When          string
	Previous      string
}

type TestNotice struct {
	Email       string
	PatientName string
	TestName    string
	When        string
	BookingID   string
}

// NotificationSink receives fire-and-forget notifications after a committed
// transition. Implementations must return promptly and never fail the
// caller.
type NotificationSink interface {
	NotifyBooked(ctx context.Context, n AppointmentNotice)
	NotifyRescheduled(ctx context.Context, n AppointmentNotice)
	NotifyCancelled(ctx context.Context, n AppointmentNotice)
	NotifyTestBooked(ctx context.Context, n TestNotice)
}

type noopSink struct{}

func (noopSink) NotifyBooked(context.Context, AppointmentNotice)      {}
func (noopSink) NotifyRescheduled(context.Context, AppointmentNotice) {}
func (noopSink) NotifyCancelled(context.Context, AppointmentNotice)   {}
func (noopSink) NotifyTestBooked(context.Context, TestNotice)         {}
