package notification

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medicare/voiceclinic/internal/domain/clinic"
	"github.com/medicare/voiceclinic/internal/domain/scheduling"
)

// Dispatcher renders notices and hands them to a sender in the background.
// The caller never waits on delivery and never sees its errors.
type Dispatcher struct {
	engine  *TemplateEngine
	sender  EmailSender
	timeout time.Duration
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

var (
	_ scheduling.NotificationSink = (*Dispatcher)(nil)
	_ clinic.WelcomeSink          = (*Dispatcher)(nil)
)

func NewDispatcher(engine *TemplateEngine, sender EmailSender, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Dispatcher{
		engine:  engine,
		sender:  sender,
		timeout: timeout,
		logger:  logger.With().Str("component", "notification").Logger(),
	}
}

func (d *Dispatcher) NotifyWelcome(ctx context.Context, n clinic.WelcomeNotice) {
	d.dispatch(ctx, TplWelcome, n.Email, map[string]string{
		"patient_name": n.Name,
		"patient_id":   strconv.FormatInt(n.PatientID, 10),
	})
}

func (d *Dispatcher) NotifyBooked(ctx context.Context, n scheduling.AppointmentNotice) {
	d.dispatch(ctx, TplBooked, n.Email, appointmentData(n))
}

func (d *Dispatcher) NotifyRescheduled(ctx context.Context, n scheduling.AppointmentNotice) {
	d.dispatch(ctx, TplRescheduled, n.Email, appointmentData(n))
}

func (d *Dispatcher) NotifyCancelled(ctx context.Context, n scheduling.AppointmentNotice) {
	d.dispatch(ctx, TplCancelled, n.Email, appointmentData(n))
}

func (d *Dispatcher) NotifyTestBooked(ctx context.Context, n scheduling.TestNotice) {
	d.dispatch(ctx, TplTestBooked, n.Email, map[string]string{
		"patient_name": n.PatientName,
		"test":         n.TestName,
		"time":         n.When,
		"booking_id":   n.BookingID,
	})
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func appointmentData(n scheduling.AppointmentNotice) map[string]string {
	return map[string]string{
		"patient_name":   n.PatientName,
		"patient_id":     strconv.FormatInt(n.PatientID, 10),
		"appointment_id": strconv.FormatInt(n.AppointmentID, 10),
		"doctor":         n.DoctorName,
		"time":           n.When,
		"old_time":       n.Previous,
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, templateID, to string, data map[string]string) {
	if to == "" {
		d.logger.Debug().Str("template", templateID).Msg("no recipient address, skipping")
		return
	}
	if data["patient_name"] == "" {
		data["patient_name"] = "Patient"
	}
	subject, body, err := d.engine.Render(templateID, data)
	if err != nil {
		d.logger.Error().Err(err).Str("template", templateID).Msg("render notification")
		return
	}
	msg := Message{
		ID:       uuid.New().String(),
		Template: templateID,
		To:       to,
		Subject:  subject,
		Body:     body,
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		if err := d.sender.Send(sendCtx, msg); err != nil {
			d.logger.Error().Err(err).Str("id", msg.ID).Str("template", templateID).Str("recipient", to).Msg("notification failed")
			return
		}
		d.logger.Info().Str("id", msg.ID).Str("template", templateID).Msg("notification sent")
	}()
}
