package subscription

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// EventTime is either an absolute instant (timed events) or a plain calendar
// date (all-day events). The two forms serialize differently and must not be
// mixed up: a date stays "2006-01-02" with no time component, an instant is
// an RFC 3339 timestamp in UTC.
type EventTime struct {
	instant  time.Time
	dateOnly bool
}

// NewInstant creates an EventTime for a timed event. The moment is stored in UTC.
func NewInstant(t time.Time) EventTime {
	return EventTime{instant: t.UTC()}
}

// NewDate creates a date-only EventTime from the calendar date of t in its own location.
func NewDate(t time.Time) EventTime {
	year, month, day := t.Date()
	return EventTime{
		instant:  time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		dateOnly: true,
	}
}

// Time returns the absolute instant for timed events. For date-only values it
// returns midnight UTC of that date.
func (et EventTime) Time() time.Time {
	return et.instant
}

// IsDate reports whether the value is a plain calendar date without a time of day.
func (et EventTime) IsDate() bool {
	return et.dateOnly
}

func (et EventTime) IsZero() bool {
	return et.instant.IsZero()
}

func (et EventTime) Equal(other EventTime) bool {
	return et.dateOnly == other.dateOnly && et.instant.Equal(other.instant)
}

func (et EventTime) String() string {
	if et.dateOnly {
		return et.instant.Format(dateLayout)
	}
	return et.instant.Format(time.RFC3339)
}

func (et EventTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(et.String())
}

func (et *EventTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode event time: %w", err)
	}
	if !strings.Contains(raw, "T") {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return fmt.Errorf("failed to parse event date %q: %w", raw, err)
		}
		*et = NewDate(parsed)
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("failed to parse event timestamp %q: %w", raw, err)
	}
	*et = NewInstant(parsed)
	return nil
}

// Event is a single concrete calendar occurrence produced by one parse cycle.
// Recurring events are expanded into multiple Events with derived IDs, so an
// Event never carries recurrence information itself.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	AllDay      bool      `json:"allDay"`
}
