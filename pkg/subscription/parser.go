package subscription

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	log "github.com/sirupsen/logrus"

	"github.com/taskvault/taskvault/internal/utils"
)

// ErrFeedFormat indicates the fetched text is not recognizable calendar data
// at all. Individual malformed events inside an otherwise valid feed do not
// produce this error; they are skipped.
var ErrFeedFormat = errors.New("invalid calendar format")

const untitledEvent = "Untitled"

const (
	dateTimeUTCLayout   = "20060102T150405Z"
	dateTimeLocalLayout = "20060102T150405"
	dateValueLayout     = "20060102"
)

type parser struct {
	clock utils.Clock
}

func newParser(clock utils.Clock) *parser {
	return &parser{clock: clock}
}

// parse converts raw ICS text into a flat list of concrete event occurrences.
// Timezone definitions are collected before events are interpreted so TZID
// references resolve against the feed's own declarations. A malformed event
// is logged and skipped without aborting the rest of the feed.
func (p *parser) parse(raw string) ([]Event, error) {
	cal, err := ics.ParseCalendar(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedFormat, err)
	}

	zones := newZoneRegistry(cal)
	now := p.clock.Now()

	events := make([]Event, 0)
	for _, ve := range cal.Events() {
		expanded, err := parseEvent(ve, zones, now)
		if err != nil {
			log.Warnf("skipping malformed calendar event: %v", err)
			continue
		}
		events = append(events, expanded...)
	}
	return events, nil
}

// parseEvent extracts one VEVENT, returning a single occurrence or, for
// recurring events, the bounded expansion of its recurrence rule.
func parseEvent(ve *ics.VEvent, zones *zoneRegistry, now time.Time) ([]Event, error) {
	startProp := ve.GetProperty(ics.ComponentPropertyDtStart)
	if startProp == nil || startProp.Value == "" {
		return nil, errors.New("event has no start time")
	}
	start, allDay, err := resolveTime(startProp, zones)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve start time: %w", err)
	}

	duration, err := eventDuration(ve, zones, start, allDay)
	if err != nil {
		return nil, err
	}

	title := propValue(ve, ics.ComponentPropertySummary)
	if title == "" {
		title = untitledEvent
	}
	id := propValue(ve, ics.ComponentPropertyUniqueId)
	if id == "" {
		id = derivedID(title, startProp.Value)
	}

	base := Event{
		ID:          id,
		Title:       title,
		Description: propValue(ve, ics.ComponentPropertyDescription),
		Location:    propValue(ve, ics.ComponentPropertyLocation),
		AllDay:      allDay,
	}

	if rruleProp := ve.GetProperty(ics.ComponentPropertyRrule); rruleProp != nil && rruleProp.Value != "" {
		return expandRecurrence(base, rruleProp.Value, start, duration, now)
	}
	return []Event{eventAt(base, start, duration)}, nil
}

// eventAt materializes an occurrence of base starting at start and keeping
// the original duration.
func eventAt(base Event, start time.Time, duration time.Duration) Event {
	if base.AllDay {
		base.Start = NewDate(start)
		base.End = NewDate(start.Add(duration))
	} else {
		base.Start = NewInstant(start)
		base.End = NewInstant(start.Add(duration))
	}
	return base
}

// eventDuration derives the duration from DTEND when present. Without DTEND
// the RFC 5545 defaults apply: one day for all-day events, zero for timed
// events.
func eventDuration(ve *ics.VEvent, zones *zoneRegistry, start time.Time, allDay bool) (time.Duration, error) {
	endProp := ve.GetProperty(ics.ComponentPropertyDtEnd)
	if endProp == nil || endProp.Value == "" {
		if allDay {
			return 24 * time.Hour, nil
		}
		return 0, nil
	}
	end, _, err := resolveTime(endProp, zones)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve end time: %w", err)
	}
	if end.Before(start) {
		return 0, fmt.Errorf("event ends before it starts (%s < %s)", end, start)
	}
	return end.Sub(start), nil
}

// resolveTime interprets a DTSTART or DTEND value. Date values are detected
// via the VALUE=DATE parameter or the absence of a time component. Zoned
// times keep their resolved location so recurrence expansion preserves
// wall-clock times across DST transitions; floating times are treated as UTC.
func resolveTime(prop *ics.IANAProperty, zones *zoneRegistry) (time.Time, bool, error) {
	value := strings.TrimSpace(prop.Value)

	if isDateValue(prop, value) {
		t, err := time.Parse(dateValueLayout, value)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid date %q: %w", value, err)
		}
		return t, true, nil
	}

	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse(dateTimeUTCLayout, value)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid UTC timestamp %q: %w", value, err)
		}
		return t, false, nil
	}

	loc := time.UTC
	if tzids, ok := prop.ICalParameters["TZID"]; ok && len(tzids) > 0 {
		loc = zones.resolve(tzids[0])
	}
	t, err := time.ParseInLocation(dateTimeLocalLayout, value, loc)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return t, false, nil
}

func isDateValue(prop *ics.IANAProperty, value string) bool {
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(value, "T")
}

func propValue(ve *ics.VEvent, name ics.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}

// derivedID builds a stable identifier for events that carry no UID, hashing
// the fields that distinguish them within one feed.
func derivedID(title, rawStart string) string {
	h := fnv.New64a()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(rawStart))
	return fmt.Sprintf("event-%x", h.Sum64())
}
