// Package notification renders patient emails from templates and delivers
// them through SMTP, a RabbitMQ queue, or the log.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Template IDs.
const (
	TplWelcome     = "patient-welcome"
	TplBooked      = "appointment-booked"
	TplRescheduled = "appointment-rescheduled"
	TplCancelled   = "appointment-cancelled"
	TplTestBooked  = "test-booked"
)

// Message is a rendered email ready for delivery. It is also the queue
// payload.
type Message struct {
	ID       string `json:"id"`
	Template string `json:"template"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

// EmailSender delivers a rendered message.
type EmailSender interface {
	Send(ctx context.Context, m Message) error
}

// Template is a subject and body with {{key}} placeholders.
type Template struct {
	ID      string
	Subject string
	Body    string
}

const signature = `
Best Regards,

{{clinic}} Administration
Patient Care Services Team`

// TemplateEngine holds the notification templates.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
	defaults  map[string]string
}

// NewTemplateEngine creates an engine with the built-in templates. clinic
// fills the {{clinic}} placeholder when the caller does not.
func NewTemplateEngine(clinic string) *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
		defaults:  map[string]string{"clinic": clinic},
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TplWelcome,
			Subject: "Welcome to {{clinic}} - Registration Complete",
			Body: `Dear {{patient_name}},

We are pleased to welcome you to {{clinic}}.

Your Patient ID: {{patient_id}}
Please save this ID. You will need it to book or manage appointments.
` + signature,
		},
		{
			ID:      TplBooked,
			Subject: "Appointment Confirmed (ID: {{appointment_id}})",
			Body: `Dear {{patient_name}},

Your appointment has been successfully booked.

Patient ID: {{patient_id}}
Doctor:     {{doctor}}
Time:       {{time}}

Please arrive 15 minutes early.
` + signature,
		},
		{
			ID:      TplRescheduled,
			Subject: "Appointment Rescheduled (ID: {{appointment_id}})",
			Body: `Dear {{patient_name}},

As per your request, your appointment has been rescheduled.

Patient ID: {{patient_id}}
Doctor:     {{doctor}}
Old Time:   {{old_time}}
New Time:   {{time}}
` + signature,
		},
		{
			ID:      TplCancelled,
			Subject: "Appointment Cancelled (ID: {{appointment_id}})",
			Body: `Dear {{patient_name}},

This is to confirm that your appointment has been cancelled.

Patient ID:     {{patient_id}}
Doctor:         {{doctor}}
Cancelled Time: {{time}}

If you need to book a new slot, please contact our Voice Assistant.
` + signature,
		},
		{
			ID:      TplTestBooked,
			Subject: "Test Booking Confirmed ({{booking_id}})",
			Body: `Dear {{patient_name}},

Your {{test}} is booked for {{time}}.

Booking ID: {{booking_id}}
` + signature,
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render substitutes data into the template. Placeholders without a value
// are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject, body = t.Subject, t.Body
	replace := func(k, v string) {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	for k, v := range data {
		replace(k, v)
	}
	for k, v := range e.defaults {
		replace(k, v)
	}
	return subject, body, nil
}

// MockEmailSender records messages for tests.
type MockEmailSender struct {
	mu         sync.Mutex
	sent       []Message
	ShouldFail bool
	FailError  string
}

func (m *MockEmailSender) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *MockEmailSender) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
