package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers Prometheus metrics for the calendar subscription engine
// and the task importer. It satisfies subscription.Metrics and
// task_import.Metrics.
type Collector struct {
	refreshTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	cachedEvents  prometheus.Gauge
	tasksImported prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskvault_calendar_refresh_total",
			Help: "Calendar feed refresh attempts by result.",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskvault_calendar_fetch_duration_seconds",
			Help:    "Duration of calendar feed HTTP fetches.",
			Buckets: prometheus.DefBuckets,
		}),
		cachedEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskvault_calendar_events_cached",
			Help: "Number of events in the current calendar cache snapshot.",
		}),
		tasksImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskvault_tasks_imported_total",
			Help: "Tasks created from calendar events.",
		}),
	}

	reg.MustRegister(
		c.refreshTotal,
		c.fetchDuration,
		c.cachedEvents,
		c.tasksImported,
	)

	return c
}

// RefreshSucceeded records a successful feed refresh and the size of the
// resulting snapshot.
func (c *Collector) RefreshSucceeded(eventCount int) {
	c.refreshTotal.WithLabelValues("success").Inc()
	c.cachedEvents.Set(float64(eventCount))
}

// RefreshFailed records a failed feed refresh by failure kind.
func (c *Collector) RefreshFailed(kind string) {
	c.refreshTotal.WithLabelValues(kind).Inc()
}

// ObserveFetchDuration records how long a feed HTTP fetch took.
func (c *Collector) ObserveFetchDuration(d time.Duration) {
	c.fetchDuration.Observe(d.Seconds())
}

// TasksImported records the number of tasks created by an import run.
func (c *Collector) TasksImported(count int) {
	c.tasksImported.Add(float64(count))
}

// Handler returns the HTTP handler serving the /metrics scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
