package event_bus

const (
	// CalendarRefreshed is published after every successful calendar feed
	// refresh, once the new snapshot is visible to readers. It carries no
	// payload; consumers re-read the cache.
	CalendarRefreshed EventType = "calendar.refreshed"

	// CalendarRefreshFailed is published when a refresh attempt fails.
	// The payload is a subscription.RefreshFailure describing whether the
	// feed was unreachable or returned unparseable data.
	CalendarRefreshFailed EventType = "calendar.refresh_failed"
)
