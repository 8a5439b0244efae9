package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandCapsOccurrenceCount(t *testing.T) {
	// a daily rule without COUNT or UNTIL would run forever
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	base := Event{ID: "daily", Title: "Daily"}

	events, err := expandRecurrence(base, "FREQ=DAILY", start, time.Hour, start)

	require.NoError(t, err)
	require.Len(t, events, maxOccurrences)
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		seen[e.ID] = struct{}{}
	}
	assert.Len(t, seen, maxOccurrences, "derived ids must be distinct")
	assert.Equal(t, "daily-0", events[0].ID)
	assert.Equal(t, "daily-99", events[99].ID)
	assert.Equal(t, start, events[0].Start.Time())
}

func TestExpandStopsAtHorizon(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	base := Event{ID: "weekly", Title: "Weekly"}

	events, err := expandRecurrence(base, "FREQ=WEEKLY", start, 0, start)

	require.NoError(t, err)
	// weeks 0 through 52 fit in the 365-day horizon, well under the count cap
	assert.Len(t, events, 53)
	horizon := start.Add(expansionHorizon)
	for _, e := range events {
		assert.False(t, e.Start.Time().After(horizon))
	}
}

func TestExpandHonorsRuleCount(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	base := Event{ID: "sync", Title: "Sync"}

	events, err := expandRecurrence(base, "FREQ=WEEKLY;COUNT=3", start, 30*time.Minute, start)

	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, start.AddDate(0, 0, 7), events[1].Start.Time())
	assert.Equal(t, start.AddDate(0, 0, 14), events[2].Start.Time())
	for _, e := range events {
		assert.Equal(t, 30*time.Minute, e.End.Time().Sub(e.Start.Time()))
	}
}

func TestExpandPreservesWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// Tuesday before the 2025-03-09 DST switch
	start := time.Date(2025, 3, 4, 9, 30, 0, 0, loc)
	base := Event{ID: "standup", Title: "Standup"}

	events, err := expandRecurrence(base, "FREQ=WEEKLY;COUNT=3", start, 30*time.Minute, start)

	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, "09:30", e.Start.Time().In(loc).Format("15:04"), "occurrence %d", i)
	}
	// the instant shifts with the UTC offset: EST before the switch, EDT after
	assert.Equal(t, time.Date(2025, 3, 4, 14, 30, 0, 0, time.UTC), events[0].Start.Time())
	assert.Equal(t, time.Date(2025, 3, 11, 13, 30, 0, 0, time.UTC), events[1].Start.Time())
}

func TestExpandAllDayKeepsDates(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	base := Event{ID: "chore", Title: "Chore", AllDay: true}

	events, err := expandRecurrence(base, "FREQ=DAILY;COUNT=2", start, 24*time.Hour, start)

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[0].Start.IsDate())
	assert.Equal(t, "2025-06-01", events[0].Start.String())
	assert.Equal(t, "2025-06-02", events[0].End.String())
	assert.Equal(t, "2025-06-02", events[1].Start.String())
	assert.Equal(t, "2025-06-03", events[1].End.String())
}

func TestExpandRejectsInvalidRule(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	_, err := expandRecurrence(Event{ID: "x"}, "FREQ=SOMETIMES", start, 0, start)

	require.Error(t, err)
}
