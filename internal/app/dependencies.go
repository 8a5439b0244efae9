package app

import (
	"context"
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/taskvault/taskvault/internal/config"
	"github.com/taskvault/taskvault/internal/metrics"
	"github.com/taskvault/taskvault/internal/utils"
	"github.com/taskvault/taskvault/pkg/subscription"
	"github.com/taskvault/taskvault/pkg/task"
	"github.com/taskvault/taskvault/pkg/task_import"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Metrics *metrics.Collector

	SubscriptionService subscription.Service
	SubscriptionHandler *subscription.Handler

	TaskRepository *task.RepositoryImpl
	TaskService    task.Service
	TaskHandler    *task.Handler

	Importer      *task_import.Importer
	ImportHandler *task_import.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *sql.DB, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.Metrics = metrics.NewCollector(prometheus.DefaultRegisterer)

	settings := func(ctx context.Context) (subscription.Settings, error) {
		return subscription.Settings{
			URL:             cfg.Calendar.URL,
			RefreshInterval: cfg.Calendar.RefreshInterval,
		}, nil
	}
	fetcher := subscription.NewHTTPFetcher(cfg.Calendar.FetchTimeout)
	deps.SubscriptionService = subscription.NewService(settings, fetcher, deps.Clock, deps.Metrics)
	deps.SubscriptionHandler = subscription.NewHandler(deps.SubscriptionService)

	deps.TaskRepository = task.NewRepository(db)
	deps.TaskService = task.NewService(deps.TaskRepository, deps.Clock)
	deps.TaskHandler = task.NewHandler(deps.TaskService)

	deps.Importer = task_import.NewImporter(
		deps.SubscriptionService,
		deps.TaskService,
		deps.Clock,
		deps.Metrics,
		cfg.Calendar.Import.DaysAhead,
	)
	deps.ImportHandler = task_import.NewHandler(deps.Importer)

	deps.SubscriptionService.SubscribeFailures(func(failure subscription.RefreshFailure) {
		log.Warnf("Calendar refresh failed (%s): %s", failure.Kind, failure.Message)
	})

	if cfg.Calendar.Import.Enabled {
		deps.Importer.Start(deps.SubscriptionService)
	}

	return deps
}
