package subscription

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/taskvault/internal/event_bus"
	"github.com/taskvault/taskvault/internal/utils"
)

const testFeedURL = "https://calendar.example.com/team.ics"

var testBase = time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

func testSettings(interval time.Duration) SettingsProvider {
	return func(ctx context.Context) (Settings, error) {
		return Settings{URL: testFeedURL, RefreshInterval: interval}, nil
	}
}

func setupCacheTest(t *testing.T) (*cache, *StubFetcher, *utils.MockClock) {
	t.Helper()
	clock := &utils.MockClock{FixedNow: testBase}
	fetcher := NewStubFetcher(singleEventFeed())
	bus := event_bus.NewEventBus()
	c := newCache(testSettings(15*time.Minute), fetcher, newParser(clock), clock, bus, noopMetrics{})
	return c, fetcher, clock
}

func TestReadWithoutEntryReturnsEmpty(t *testing.T) {
	c, fetcher, _ := setupCacheTest(t)

	assert.Empty(t, c.read())
	assert.Equal(t, 0, fetcher.Calls())
}

func TestReadFreshEntryReturnsCachedEvents(t *testing.T) {
	// given
	c, fetcher, clock := setupCacheTest(t)
	require.NoError(t, c.refresh(context.Background()))

	// when: just inside the freshness window
	clock.SetNow(testBase.Add(14 * time.Minute))
	events := c.read()

	// then: cached events verbatim, no extra fetch
	require.Len(t, events, 1)
	assert.Equal(t, "one", events[0].ID)
	assert.Equal(t, 1, fetcher.Calls())
}

func TestReadAtExpiryServesStaleAndTriggersOneRefresh(t *testing.T) {
	// given
	c, fetcher, clock := setupCacheTest(t)
	require.NoError(t, c.refresh(context.Background()))
	fetcher.Respond(twoEventFeed())

	// when: exactly at expiry the entry counts as stale but is still served
	clock.SetNow(testBase.Add(15 * time.Minute))
	events := c.read()

	// then: the previous events come back, not the new feed
	require.Len(t, events, 1)
	assert.Equal(t, "one", events[0].ID)

	// and the read fired exactly one background refresh
	require.Eventually(t, func() bool {
		return c.status(context.Background()).EventCount == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, fetcher.Calls())
	assert.Len(t, c.read(), 2)
}

func TestReadPastGraceReturnsEmpty(t *testing.T) {
	c, fetcher, clock := setupCacheTest(t)
	require.NoError(t, c.refresh(context.Background()))

	// exactly at expiry plus grace the entry is too old to serve
	clock.SetNow(testBase.Add(20 * time.Minute))
	assert.Empty(t, c.read())
	// expired reads do not trigger refreshes, that is the timer's job
	assert.Equal(t, 1, fetcher.Calls())
}

func TestFailedRefreshKeepsExistingEntry(t *testing.T) {
	// given
	c, fetcher, _ := setupCacheTest(t)
	require.NoError(t, c.refresh(context.Background()))

	// when
	fetcher.Fail(fmt.Errorf("%w: connection refused", ErrFeedUnreachable))
	err := c.refresh(context.Background())

	// then: the failure surfaces but the previous entry stays authoritative
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFeedUnreachable)
	events := c.read()
	require.Len(t, events, 1)
	assert.Equal(t, "one", events[0].ID)

	status := c.status(context.Background())
	assert.Equal(t, CacheStateFresh, status.State)
	require.NotNil(t, status.LastFailure)
	assert.Equal(t, FailureNetwork, status.LastFailure.Kind)
}

func TestRefreshClassifiesFormatFailure(t *testing.T) {
	c, fetcher, _ := setupCacheTest(t)
	fetcher.Respond("<html>not a calendar</html>")

	err := c.refresh(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFeedFormat)
	status := c.status(context.Background())
	assert.Equal(t, CacheStateEmpty, status.State)
	require.NotNil(t, status.LastFailure)
	assert.Equal(t, FailureFormat, status.LastFailure.Kind)
}

func TestSuccessfulRefreshClearsLastFailure(t *testing.T) {
	c, fetcher, _ := setupCacheTest(t)
	fetcher.Fail(fmt.Errorf("%w: no route to host", ErrFeedUnreachable))
	require.Error(t, c.refresh(context.Background()))

	fetcher.Respond(singleEventFeed())
	require.NoError(t, c.refresh(context.Background()))

	status := c.status(context.Background())
	assert.Equal(t, CacheStateFresh, status.State)
	assert.Nil(t, status.LastFailure)
}

func TestMaybeRefresh(t *testing.T) {
	t.Run("refreshes when nothing is cached", func(t *testing.T) {
		c, fetcher, _ := setupCacheTest(t)

		c.maybeRefresh(context.Background())

		assert.Equal(t, 1, fetcher.Calls())
		assert.Len(t, c.read(), 1)
	})

	t.Run("does nothing while the entry is fresh", func(t *testing.T) {
		c, fetcher, clock := setupCacheTest(t)
		require.NoError(t, c.refresh(context.Background()))

		clock.SetNow(testBase.Add(10 * time.Minute))
		c.maybeRefresh(context.Background())

		assert.Equal(t, 1, fetcher.Calls())
	})

	t.Run("refreshes once the entry expired", func(t *testing.T) {
		c, fetcher, clock := setupCacheTest(t)
		require.NoError(t, c.refresh(context.Background()))

		clock.SetNow(testBase.Add(15 * time.Minute))
		c.maybeRefresh(context.Background())

		assert.Equal(t, 2, fetcher.Calls())
	})

	t.Run("does nothing after destroy", func(t *testing.T) {
		c, fetcher, _ := setupCacheTest(t)
		c.destroy()

		c.maybeRefresh(context.Background())

		assert.Equal(t, 0, fetcher.Calls())
	})
}

func TestStatusBeforeFirstFetch(t *testing.T) {
	c, _, _ := setupCacheTest(t)

	status := c.status(context.Background())

	assert.Equal(t, testFeedURL, status.URL)
	assert.Equal(t, CacheStateEmpty, status.State)
	assert.Zero(t, status.EventCount)
	assert.Nil(t, status.LastUpdated)
	assert.Nil(t, status.ExpiresAt)
	assert.Nil(t, status.LastFailure)
}

func TestStatusStaleWithinGrace(t *testing.T) {
	c, _, clock := setupCacheTest(t)
	require.NoError(t, c.refresh(context.Background()))

	clock.SetNow(testBase.Add(17 * time.Minute))
	status := c.status(context.Background())

	assert.Equal(t, CacheStateStale, status.State)
	assert.Equal(t, 1, status.EventCount)
	require.NotNil(t, status.LastUpdated)
	assert.Equal(t, testBase, *status.LastUpdated)
	require.NotNil(t, status.ExpiresAt)
	assert.Equal(t, testBase.Add(15*time.Minute), *status.ExpiresAt)
}

func TestStatusExpiredPastGrace(t *testing.T) {
	c, _, clock := setupCacheTest(t)
	require.NoError(t, c.refresh(context.Background()))

	clock.SetNow(testBase.Add(25 * time.Minute))
	status := c.status(context.Background())

	assert.Equal(t, CacheStateExpired, status.State)
	assert.Equal(t, 1, status.EventCount)
	require.NotNil(t, status.LastUpdated)
	assert.Equal(t, testBase, *status.LastUpdated)
	require.NotNil(t, status.ExpiresAt)
	assert.Equal(t, testBase.Add(15*time.Minute), *status.ExpiresAt)
}

func TestLateRefreshAfterDestroyIsDiscarded(t *testing.T) {
	// given: a refresh blocked inside the fetcher
	c, fetcher, _ := setupCacheTest(t)
	fetcher.Block()
	done := make(chan error, 1)
	go func() { done <- c.refresh(context.Background()) }()
	require.Eventually(t, func() bool { return fetcher.Calls() == 1 }, time.Second, 5*time.Millisecond)

	// when: teardown happens before the fetch completes
	c.destroy()
	fetcher.Release()

	// then: the late result is dropped silently
	require.NoError(t, <-done)
	assert.Empty(t, c.read())
	assert.Equal(t, CacheStateEmpty, c.status(context.Background()).State)
}
