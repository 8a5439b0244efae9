package subscription

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

const (
	// maxOccurrences caps how many occurrences a single recurrence rule may
	// produce, so that rules without COUNT or UNTIL stay bounded.
	maxOccurrences = 100
	// expansionHorizon limits how far ahead of the expansion time occurrences
	// are generated, independent of the occurrence cap.
	expansionHorizon = 365 * 24 * time.Hour
)

// expandRecurrence enumerates the occurrences of a recurrence rule anchored
// at start, stopping at maxOccurrences or at the horizon, whichever comes
// first. Each occurrence keeps the original event's duration and receives a
// derived id so instances stay individually addressable. Exception dates and
// modified single occurrences are not supported; every enumerated occurrence
// is emitted.
func expandRecurrence(base Event, rawRule string, start time.Time, duration time.Duration, now time.Time) ([]Event, error) {
	rule, err := rrule.StrToRRule(rawRule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recurrence rule %q: %w", rawRule, err)
	}
	rule.DTStart(start)

	horizon := now.Add(expansionHorizon)
	next := rule.Iterator()

	events := make([]Event, 0)
	for index := 0; index < maxOccurrences; index++ {
		occurrence, ok := next()
		if !ok {
			break
		}
		if occurrence.After(horizon) {
			break
		}
		instance := eventAt(base, occurrence, duration)
		instance.ID = fmt.Sprintf("%s-%d", base.ID, index)
		events = append(events, instance)
	}
	return events, nil
}
