package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskvault/taskvault/internal/utils"
)

type ServiceImpl struct {
	repo  Repository
	clock utils.Clock
}

func NewService(repo Repository, clock utils.Clock) Service {
	return &ServiceImpl{repo: repo, clock: clock}
}

func (s *ServiceImpl) Create(ctx context.Context, task Task) (*Task, error) {
	if strings.TrimSpace(task.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if task.Status == "" {
		task.Status = StatusTodo
	}
	if !task.Status.valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, task.Status)
	}

	now := s.clock.Now()
	task.ID = uuid.NewString()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == StatusDone && task.CompletedAt == nil {
		task.CompletedAt = &now
	}

	if err := s.repo.Store(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to store task: %w", err)
	}
	return &task, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id string) (*Task, error) {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (s *ServiceImpl) List(ctx context.Context, filter Filter) ([]Task, error) {
	if filter.Status != "" && !filter.Status.valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, filter.Status)
	}
	tasks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Update replaces the stored task with the given one, preserving creation
// time and the calendar event link, which is owned by the importer.
func (s *ServiceImpl) Update(ctx context.Context, task Task) (*Task, error) {
	if strings.TrimSpace(task.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if !task.Status.valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, task.Status)
	}

	var updated *Task
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		existing, err := repo.Get(ctx, task.ID)
		if err != nil {
			return err
		}
		task.CreatedAt = existing.CreatedAt
		task.EventID = existing.EventID
		task.CompletedAt = s.completionTime(existing, task.Status)
		task.UpdatedAt = s.clock.Now()

		if err := repo.Update(ctx, task); err != nil {
			return err
		}
		updated = &task
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return updated, nil
}

func (s *ServiceImpl) UpdateStatus(ctx context.Context, id string, status Status) (*Task, error) {
	if !status.valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, status)
	}

	var updated *Task
	err := s.repo.WithTransaction(ctx, func(repo Repository) error {
		existing, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		existing.CompletedAt = s.completionTime(existing, status)
		existing.Status = status
		existing.UpdatedAt = s.clock.Now()

		if err := repo.Update(ctx, *existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}
	return updated, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (s *ServiceImpl) FindByEventID(ctx context.Context, eventID string) (*Task, error) {
	task, err := s.repo.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task by event id: %w", err)
	}
	return task, nil
}

// completionTime keeps the original completion timestamp while a task stays
// done, stamps a new one when it becomes done and clears it otherwise.
func (s *ServiceImpl) completionTime(previous *Task, status Status) *time.Time {
	if status != StatusDone {
		return nil
	}
	if previous.CompletedAt != nil {
		return previous.CompletedAt
	}
	now := s.clock.Now()
	return &now
}
