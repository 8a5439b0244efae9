package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/taskvault/taskvault/internal/event_bus"
	"github.com/taskvault/taskvault/internal/utils"
)

// gracePeriod is how long past expiry cached events are still served while a
// background refresh runs. Past expiry plus grace, reads return nothing
// rather than data considered too old to be useful.
const gracePeriod = 5 * time.Minute

type cacheEntry struct {
	events      []Event
	lastUpdated time.Time
	expiresAt   time.Time
}

// cache holds the most recent successful parse result and implements the
// stale-while-revalidate read policy. The entry is replaced wholesale by each
// successful refresh; a failed refresh never touches it. After destroy, late
// results from refreshes still in flight are discarded.
type cache struct {
	settings SettingsProvider
	fetcher  Fetcher
	parser   *parser
	clock    utils.Clock
	bus      *event_bus.EventBus
	metrics  Metrics

	mu          sync.Mutex
	entry       *cacheEntry
	lastFailure *RefreshFailure
	destroyed   bool
}

func newCache(settings SettingsProvider, fetcher Fetcher, parser *parser, clock utils.Clock, bus *event_bus.EventBus, metrics Metrics) *cache {
	return &cache{
		settings: settings,
		fetcher:  fetcher,
		parser:   parser,
		clock:    clock,
		bus:      bus,
		metrics:  metrics,
	}
}

// read returns the cached events according to the freshness rules. A fresh
// entry is returned as-is. An entry within the grace period is returned
// while one background refresh is triggered without waiting for it. With no
// entry, or one past expiry plus grace, the result is empty.
func (c *cache) read() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry == nil {
		return []Event{}
	}

	now := c.clock.Now()
	if now.Before(c.entry.expiresAt) {
		return c.entry.events
	}
	if now.Before(c.entry.expiresAt.Add(gracePeriod)) {
		go func() {
			if err := c.refresh(context.Background()); err != nil {
				log.Debugf("background calendar refresh failed: %v", err)
			}
		}()
		return c.entry.events
	}
	return []Event{}
}

// refresh fetches and parses the feed, then atomically replaces the cache
// entry and publishes a change notification. On failure the existing entry
// stays authoritative and the failure is classified and published instead.
// Concurrent refreshes are tolerated; the last one to complete wins.
func (c *cache) refresh(ctx context.Context) error {
	settings, err := c.settings(ctx)
	if err != nil {
		return c.fail(ctx, fmt.Errorf("failed to load subscription settings: %w", err))
	}
	if settings.URL == "" {
		return c.fail(ctx, errors.New("no calendar feed URL configured"))
	}

	fetchStart := c.clock.Now()
	raw, err := c.fetcher.Fetch(ctx, settings.URL)
	c.metrics.ObserveFetchDuration(c.clock.Now().Sub(fetchStart))
	if err != nil {
		return c.fail(ctx, err)
	}

	events, err := c.parser.parse(raw)
	if err != nil {
		return c.fail(ctx, err)
	}

	now := c.clock.Now()
	entry := &cacheEntry{
		events:      events,
		lastUpdated: now,
		expiresAt:   now.Add(settings.RefreshInterval),
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.entry = entry
	c.lastFailure = nil
	c.mu.Unlock()

	c.metrics.RefreshSucceeded(len(events))
	log.Infof("calendar feed refreshed, %d events cached", len(events))
	if err := c.bus.Publish(event_bus.NewEvent(ctx, event_bus.CalendarRefreshed, nil)); err != nil {
		log.Errorf("failed to notify calendar refresh subscribers: %v", err)
	}
	return nil
}

// maybeRefresh refreshes when nothing is cached yet or the entry is past
// expiry. The periodic schedule calls this independently of reads; both paths
// go through the same refresh and either may win the race.
func (c *cache) maybeRefresh(ctx context.Context) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	needsRefresh := c.entry == nil || !c.clock.Now().Before(c.entry.expiresAt)
	c.mu.Unlock()

	if !needsRefresh {
		return
	}
	if err := c.refresh(ctx); err != nil {
		log.Debugf("scheduled calendar refresh failed: %v", err)
	}
}

// status reports the current cache state for diagnostics.
func (c *cache) status(ctx context.Context) Status {
	var url string
	if settings, err := c.settings(ctx); err == nil {
		url = settings.URL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{URL: url, State: CacheStateEmpty}
	if c.lastFailure != nil {
		failure := *c.lastFailure
		status.LastFailure = &failure
	}
	if c.entry == nil {
		return status
	}

	now := c.clock.Now()
	switch {
	case now.Before(c.entry.expiresAt):
		status.State = CacheStateFresh
	case now.Before(c.entry.expiresAt.Add(gracePeriod)):
		status.State = CacheStateStale
	default:
		status.State = CacheStateExpired
	}

	status.EventCount = len(c.entry.events)
	lastUpdated := c.entry.lastUpdated
	expiresAt := c.entry.expiresAt
	status.LastUpdated = &lastUpdated
	status.ExpiresAt = &expiresAt
	return status
}

// destroy drops the cache and marks it so that a refresh completing after
// teardown cannot write its result back.
func (c *cache) destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
	c.entry = nil
	c.lastFailure = nil
}

func (c *cache) fail(ctx context.Context, err error) error {
	failure := classifyFailure(err, c.clock.Now())

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return err
	}
	c.lastFailure = &failure
	c.mu.Unlock()

	c.metrics.RefreshFailed(string(failure.Kind))
	log.Warnf("calendar refresh failed: %v", err)
	if pubErr := c.bus.Publish(event_bus.NewEvent(ctx, event_bus.CalendarRefreshFailed, failure)); pubErr != nil {
		log.Errorf("failed to notify calendar failure subscribers: %v", pubErr)
	}
	return err
}

func classifyFailure(err error, now time.Time) RefreshFailure {
	kind := FailureInternal
	switch {
	case errors.Is(err, ErrFeedUnreachable):
		kind = FailureNetwork
	case errors.Is(err, ErrFeedFormat):
		kind = FailureFormat
	}
	return RefreshFailure{
		Kind:    kind,
		Message: err.Error(),
		Time:    now,
	}
}
