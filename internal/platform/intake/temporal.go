package intake

import (
	"strings"
	"time"

	"github.com/medicare/voiceclinic/internal/platform/outcome"
)

const DateLayout = "2006-01-02"

var instantLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 3:04 PM",
	"2006-01-02 3:04PM",
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(date string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, outcome.New(outcome.InvalidTemporalInput, "Invalid date format. Use YYYY-MM-DD.")
	}
	return d, nil
}

// ParseInstant combines a YYYY-MM-DD date with a 24-hour "15:04" or a
// 12-hour "3:04 PM" time of day. Instants carry no timezone.
func ParseInstant(date, clock string) (time.Time, error) {
	full := strings.TrimSpace(date) + " " + strings.ToUpper(strings.TrimSpace(clock))
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, full); err == nil {
			return t, nil
		}
	}
	return time.Time{}, outcome.New(outcome.InvalidTemporalInput, "I didn't understand that date or time. Please say it again clearly.")
}
