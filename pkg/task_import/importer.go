// Package task_import turns upcoming calendar events into tasks.
package task_import

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/taskvault/taskvault/internal/utils"
	"github.com/taskvault/taskvault/pkg/subscription"
	"github.com/taskvault/taskvault/pkg/task"
)

const defaultDaysAhead = 7

// importedTag marks tasks created from calendar events so they can be
// filtered in task listings.
const importedTag = "calendar"

// EventsReader is the part of the subscription service the importer needs.
type EventsReader interface {
	Events() []subscription.Event
}

// TaskWriter is the part of the task service the importer needs.
type TaskWriter interface {
	Create(ctx context.Context, t task.Task) (*task.Task, error)
	FindByEventID(ctx context.Context, eventID string) (*task.Task, error)
}

// Subscriber delivers refresh notifications. The subscription service
// satisfies it.
type Subscriber interface {
	Subscribe(fn func()) func()
}

type Metrics interface {
	TasksImported(count int)
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type Importer struct {
	events  EventsReader
	tasks   TaskWriter
	clock   utils.Clock
	metrics Metrics
	horizon time.Duration

	mu          sync.Mutex
	unsubscribe func()
}

func NewImporter(events EventsReader, tasks TaskWriter, clock utils.Clock, metrics Metrics, daysAhead int) *Importer {
	if daysAhead <= 0 {
		daysAhead = defaultDaysAhead
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Importer{
		events:  events,
		tasks:   tasks,
		clock:   clock,
		metrics: metrics,
		horizon: time.Duration(daysAhead) * 24 * time.Hour,
	}
}

// Start registers the importer to run after every successful calendar
// refresh. Calling Start on a running importer has no effect.
func (i *Importer) Start(source Subscriber) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.unsubscribe != nil {
		return
	}
	i.unsubscribe = source.Subscribe(func() {
		if _, err := i.Run(context.Background()); err != nil {
			log.Errorf("Automatic calendar import failed: %v", err)
		}
	})
}

// Stop detaches the importer from refresh notifications. It is safe to call
// repeatedly and on an importer that never started.
func (i *Importer) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.unsubscribe == nil {
		return
	}
	i.unsubscribe()
	i.unsubscribe = nil
}

// Run creates a task for every cached event starting between the beginning of
// the current day (UTC) and the import horizon. Events that already have a
// task linked to them are counted as skipped. All-day events carry midnight
// UTC start times, so anchoring the window at the start of the day keeps
// today's all-day events importable.
func (i *Importer) Run(ctx context.Context) (ImportResult, error) {
	from := i.clock.Now().UTC().Truncate(24 * time.Hour)
	to := from.Add(i.horizon)

	var result ImportResult
	for _, event := range i.events.Events() {
		start := event.Start.Time()
		if start.Before(from) || !start.Before(to) {
			continue
		}

		_, err := i.tasks.FindByEventID(ctx, event.ID)
		if err == nil {
			result.Skipped++
			continue
		}
		if !errors.Is(err, task.ErrTaskNotFound) {
			return result, fmt.Errorf("could not check for existing task: %w", err)
		}

		if _, err := i.tasks.Create(ctx, taskFromEvent(event)); err != nil {
			return result, fmt.Errorf("could not create task for event %s: %w", event.ID, err)
		}
		result.Imported++
	}

	if result.Imported > 0 {
		i.metrics.TasksImported(result.Imported)
	}
	log.Infof("Calendar import finished: %d imported, %d skipped", result.Imported, result.Skipped)
	return result, nil
}

func taskFromEvent(event subscription.Event) task.Task {
	due := event.Start.Time()
	description := event.Description
	if event.Location != "" {
		if description != "" {
			description += "\n"
		}
		description += "Location: " + event.Location
	}
	return task.Task{
		Title:       event.Title,
		Description: description,
		Status:      task.StatusTodo,
		DueDate:     &due,
		Tags:        []string{importedTag},
		EventID:     event.ID,
	}
}

type noopMetrics struct{}

func (noopMetrics) TasksImported(int) {}
