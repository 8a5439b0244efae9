package task

import (
	"context"
	"errors"
	"sort"
)

type RepositoryStub struct {
	items map[string]Task // id -> task
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{items: make(map[string]Task)}
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	return fn(r)
}

func (r *RepositoryStub) Store(ctx context.Context, task Task) error {
	if _, ok := r.items[task.ID]; ok {
		return errors.New("task with given id already exists")
	}
	r.items[task.ID] = task
	return nil
}

func (r *RepositoryStub) Get(ctx context.Context, id string) (*Task, error) {
	found, ok := r.items[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &found, nil
}

func (r *RepositoryStub) List(ctx context.Context, filter Filter) ([]Task, error) {
	tasks := make([]Task, 0, len(r.items))
	for _, t := range r.items {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Tag != "" && !hasTag(t.Tags, filter.Tag) {
			continue
		}
		if filter.DueBefore != nil && (t.DueDate == nil || t.DueDate.After(*filter.DueBefore)) {
			continue
		}
		tasks = append(tasks, t)
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	return tasks, nil
}

func (r *RepositoryStub) Update(ctx context.Context, task Task) error {
	if _, ok := r.items[task.ID]; !ok {
		return ErrTaskNotFound
	}
	r.items[task.ID] = task
	return nil
}

func (r *RepositoryStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return ErrTaskNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *RepositoryStub) FindByEventID(ctx context.Context, eventID string) (*Task, error) {
	for _, t := range r.items {
		if t.EventID != "" && t.EventID == eventID {
			found := t
			return &found, nil
		}
	}
	return nil, ErrTaskNotFound
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
