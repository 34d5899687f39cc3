package scheduling

import (
	"context"
	"time"

	"github.com/medicare/voiceclinic/internal/platform/outcome"
)

// DayTemplate describes the bookable day: slots of Step from Open
// (inclusive) to Close (exclusive), both offsets from midnight, on every day
// except ClosedOn.
type DayTemplate struct {
	Open     time.Duration
	Close    time.Duration
	Step     time.Duration
	ClosedOn time.Weekday
}

// ClinicDay is 09:00 to 17:00 in 30-minute slots, closed on Sunday.
var ClinicDay = DayTemplate{
	Open:     9 * time.Hour,
	Close:    17 * time.Hour,
	Step:     30 * time.Minute,
	ClosedOn: time.Sunday,
}

func (t DayTemplate) IsClosed(day time.Time) bool {
	return day.Weekday() == t.ClosedOn
}

// Slots returns every slot start of date's day in chronological order.
func (t DayTemplate) Slots(date time.Time) []time.Time {
	day := midnight(date)
	var out []time.Time
	for off := t.Open; off < t.Close; off += t.Step {
		out = append(out, day.Add(off))
	}
	return out
}

// Canonical reports whether at sits exactly on a slot boundary, with no
// seconds or sub-second part.
func (t DayTemplate) Canonical(at time.Time) bool {
	off := at.Sub(midnight(at))
	return off%t.Step == (t.Open % t.Step)
}

// Within reports whether at starts a slot inside opening hours.
func (t DayTemplate) Within(at time.Time) bool {
	off := at.Sub(midnight(at))
	return off >= t.Open && off < t.Close
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaySlots is the availability of one doctor on one date.
type DaySlots struct {
	Date   time.Time
	Slots  []string
	Closed bool
}

// Calendar computes open slots from the day template and the active
// appointments in the store. It never caches.
type Calendar struct {
	appts AppointmentRepository
	day   DayTemplate
}

func NewCalendar(appts AppointmentRepository, day DayTemplate) *Calendar {
	return &Calendar{appts: appts, day: day}
}

// AvailableSlots returns the doctor's free slots on date as "15:04" strings.
// A closed day yields no slots and Closed set.
func (c *Calendar) AvailableSlots(ctx context.Context, doctorID int64, date time.Time) (*DaySlots, error) {
	day := midnight(date)
	result := &DaySlots{Date: day, Slots: []string{}}
	if c.day.IsClosed(day) {
		result.Closed = true
		return result, nil
	}

	booked, err := c.appts.FindActiveOn(ctx, doctorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, outcome.Storage(err)
	}
	taken := make(map[string]bool, len(booked))
	for _, a := range booked {
		taken[a.At.Format(clockLayout)] = true
	}

	for _, slot := range c.day.Slots(day) {
		if s := slot.Format(clockLayout); !taken[s] {
			result.Slots = append(result.Slots, s)
		}
	}
	return result, nil
}
