package task

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrInvalidTask  = errors.New("invalid task")
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

func (s Status) valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type Task struct {
	ID            string
	Title         string
	Description   string
	Status        Status
	Priority      int
	DueDate       *time.Time
	ScheduledDate *time.Time
	Tags          []string
	// EventID links a task to the calendar event it was imported from.
	// At most one task may reference a given event.
	EventID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status Status
	Tag    string
	// DueBefore keeps tasks whose due date falls on or before the given
	// time. Tasks without a due date never match.
	DueBefore *time.Time
}

type Service interface {
	Create(ctx context.Context, task Task) (*Task, error)
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter Filter) ([]Task, error)
	Update(ctx context.Context, task Task) (*Task, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Task, error)
	Delete(ctx context.Context, id string) error
	FindByEventID(ctx context.Context, eventID string) (*Task, error)
}
