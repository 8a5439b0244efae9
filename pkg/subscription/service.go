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

type ServiceImpl struct {
	cache     *cache
	scheduler *scheduler
	bus       *event_bus.EventBus

	mu      sync.Mutex
	started bool
}

// NewService builds the subscription engine. The notification bus is owned by
// the service and reachable only through Subscribe and SubscribeFailures.
// Passing a nil Metrics disables instrumentation.
func NewService(settings SettingsProvider, fetcher Fetcher, clock utils.Clock, metrics Metrics) Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	bus := event_bus.NewEventBus()
	c := newCache(settings, fetcher, newParser(clock), clock, bus, metrics)
	return &ServiceImpl{
		cache: c,
		scheduler: newScheduler(func() {
			c.maybeRefresh(context.Background())
		}),
		bus: bus,
	}
}

// Start validates the configuration, performs the initial load and begins the
// periodic refresh schedule. A failing initial fetch does not fail Start; the
// failure is published to failure subscribers and the schedule keeps
// retrying. The timer only starts once validation passed, so a failed Start
// never leaves one running.
func (s *ServiceImpl) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	settings, err := s.cache.settings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load subscription settings: %w", err)
	}
	if settings.URL == "" {
		return errors.New("no calendar feed URL configured")
	}

	if err := s.cache.refresh(ctx); err != nil {
		log.Warnf("initial calendar load failed, will retry on schedule: %v", err)
	}

	s.scheduler.start()
	s.started = true
	return nil
}

// Stop releases the refresh timer, drops the cache and detaches all
// subscribers. It is safe to call repeatedly and on a service that never
// started. A refresh still in flight is allowed to complete but its result is
// discarded.
func (s *ServiceImpl) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduler.stop()
	s.cache.destroy()
	s.bus.Clear()
	s.started = false
}

// Events returns the cached calendar events. Within the grace period after
// expiry the previous events are still returned while a background refresh
// runs; once the grace period passes the result is empty.
func (s *ServiceImpl) Events() []Event {
	return s.cache.read()
}

// Refresh forces an immediate fetch regardless of cache freshness. The
// returned error wraps ErrFeedUnreachable or ErrFeedFormat for the two
// user-distinguishable failure classes.
func (s *ServiceImpl) Refresh(ctx context.Context) error {
	return s.cache.refresh(ctx)
}

func (s *ServiceImpl) Status(ctx context.Context) Status {
	return s.cache.status(ctx)
}

// Subscribe registers fn to run after every successful refresh. The returned
// function removes the subscription.
func (s *ServiceImpl) Subscribe(fn func()) func() {
	return s.bus.Subscribe(event_bus.CalendarRefreshed, func(event_bus.Event) error {
		fn()
		return nil
	})
}

// SubscribeFailures registers fn to run after every failed refresh attempt.
// The returned function removes the subscription.
func (s *ServiceImpl) SubscribeFailures(fn func(RefreshFailure)) func() {
	return event_bus.SubscribeTyped[RefreshFailure](s.bus, event_bus.CalendarRefreshFailed,
		func(e event_bus.EventT[RefreshFailure]) error {
			fn(e.Data)
			return nil
		})
}

type noopMetrics struct{}

func (noopMetrics) RefreshSucceeded(int)               {}
func (noopMetrics) RefreshFailed(string)               {}
func (noopMetrics) ObserveFetchDuration(time.Duration) {}
