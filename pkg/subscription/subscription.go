// Package subscription implements the remote calendar feed integration. It
// fetches an ICS feed over HTTP, parses it into concrete event occurrences
// (expanding recurrence rules with bounded limits) and serves the result from
// a stale-while-revalidate cache that is refreshed periodically in the
// background.
package subscription

import (
	"context"
	"time"
)

// Settings is the subscription configuration, owned by the application config
// and read on every refresh rather than cached here.
type Settings struct {
	URL             string
	RefreshInterval time.Duration
}

// SettingsProvider supplies the current subscription settings.
type SettingsProvider func(ctx context.Context) (Settings, error)

// CacheState describes the freshness of the cached events.
type CacheState string

const (
	// CacheStateEmpty means nothing is cached, either because no fetch has
	// succeeded yet or because the last entry aged past the grace period.
	CacheStateEmpty CacheState = "empty"
	// CacheStateFresh means the cached events are within the freshness window.
	CacheStateFresh CacheState = "fresh"
	// CacheStateStale means the cached events are past the freshness window
	// but still within the grace period and served while a refresh runs.
	CacheStateStale CacheState = "stale"
	// CacheStateExpired means the cached events aged past the grace period
	// and are withheld until a refresh succeeds.
	CacheStateExpired CacheState = "expired"
)

// FailureKind classifies a refresh failure for user-facing reporting.
type FailureKind string

const (
	// FailureNetwork covers unreachable hosts, timeouts and non-2xx responses.
	FailureNetwork FailureKind = "network"
	// FailureFormat means the fetched text is not recognizable calendar data.
	FailureFormat FailureKind = "format"
	// FailureInternal covers anything else, e.g. missing configuration.
	FailureInternal FailureKind = "internal"
)

// RefreshFailure describes the most recent failed refresh attempt.
type RefreshFailure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Time    time.Time   `json:"time"`
}

// Status is a snapshot of the subscription for diagnostics.
type Status struct {
	URL         string          `json:"url"`
	State       CacheState      `json:"state"`
	EventCount  int             `json:"eventCount"`
	LastUpdated *time.Time      `json:"lastUpdated,omitempty"`
	ExpiresAt   *time.Time      `json:"expiresAt,omitempty"`
	LastFailure *RefreshFailure `json:"lastFailure,omitempty"`
}

// Metrics receives instrumentation callbacks from the subscription engine.
type Metrics interface {
	RefreshSucceeded(eventCount int)
	RefreshFailed(kind string)
	ObserveFetchDuration(d time.Duration)
}

// Service is the calendar subscription engine. Start performs the initial
// load and begins periodic background refreshes; Stop releases the timer,
// drops the cache and detaches all subscribers. A stopped service serves no
// events and ignores late results from refreshes that were still in flight.
type Service interface {
	Start(ctx context.Context) error
	Stop()
	Events() []Event
	Refresh(ctx context.Context) error
	Status(ctx context.Context) Status
	Subscribe(fn func()) func()
	SubscribeFailures(fn func(RefreshFailure)) func()
}
