package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskvault/taskvault/internal/utils"
)

var serviceTestNow = time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

func setupServiceTest(t *testing.T) (Service, *RepositoryStub, *utils.MockClock) {
	repository := NewRepositoryStub()
	clock := &utils.MockClock{FixedNow: serviceTestNow}
	service := NewService(repository, clock)
	return service, repository, clock
}

func TestServiceImpl_Create(t *testing.T) {
	t.Run("should create a task with defaults", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// when
		created, err := service.Create(context.Background(), Task{Title: "Write weekly report"})

		// then
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, StatusTodo, created.Status)
		assert.Equal(t, serviceTestNow, created.CreatedAt)
		assert.Equal(t, serviceTestNow, created.UpdatedAt)
		assert.Nil(t, created.CompletedAt)
	})

	t.Run("should keep provided fields", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// given
		due := serviceTestNow.Add(48 * time.Hour)
		toCreate := Task{
			Title:       "Book flights",
			Description: "Outbound and return",
			Status:      StatusInProgress,
			Priority:    3,
			DueDate:     &due,
			Tags:        []string{"travel"},
			EventID:     "event-1a2b-0",
		}

		// when
		created, err := service.Create(context.Background(), toCreate)

		// then
		require.NoError(t, err)
		assert.Equal(t, "Book flights", created.Title)
		assert.Equal(t, StatusInProgress, created.Status)
		assert.Equal(t, 3, created.Priority)
		assert.Equal(t, &due, created.DueDate)
		assert.Equal(t, []string{"travel"}, created.Tags)
		assert.Equal(t, "event-1a2b-0", created.EventID)
	})

	t.Run("should reject a blank title", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// when
		_, err := service.Create(context.Background(), Task{Title: "   "})

		// then
		require.ErrorIs(t, err, ErrInvalidTask)
	})

	t.Run("should reject an unknown status", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// when
		_, err := service.Create(context.Background(), Task{Title: "Task", Status: "blocked"})

		// then
		require.ErrorIs(t, err, ErrInvalidTask)
	})

	t.Run("should stamp completion when created as done", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// when
		created, err := service.Create(context.Background(), Task{Title: "Already finished", Status: StatusDone})

		// then
		require.NoError(t, err)
		require.NotNil(t, created.CompletedAt)
		assert.Equal(t, serviceTestNow, *created.CompletedAt)
	})
}

func TestServiceImpl_Update(t *testing.T) {
	t.Run("should update fields and bump the update time", func(t *testing.T) {
		service, _, clock := setupServiceTest(t)

		// given
		created, err := service.Create(context.Background(), Task{Title: "Draft proposal"})
		require.NoError(t, err)

		later := serviceTestNow.Add(30 * time.Minute)
		clock.SetNow(later)

		// when
		toUpdate := *created
		toUpdate.Title = "Finalize proposal"
		toUpdate.Priority = 1
		updated, err := service.Update(context.Background(), toUpdate)

		// then
		require.NoError(t, err)
		assert.Equal(t, "Finalize proposal", updated.Title)
		assert.Equal(t, 1, updated.Priority)
		assert.Equal(t, serviceTestNow, updated.CreatedAt)
		assert.Equal(t, later, updated.UpdatedAt)
	})

	t.Run("should preserve the calendar event link", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// given
		created, err := service.Create(context.Background(), Task{Title: "Team standup", EventID: "event-1a2b-0"})
		require.NoError(t, err)

		// when - the update carries no event id
		toUpdate := *created
		toUpdate.EventID = ""
		updated, err := service.Update(context.Background(), toUpdate)

		// then
		require.NoError(t, err)
		assert.Equal(t, "event-1a2b-0", updated.EventID)
	})

	t.Run("should stamp completion when moving to done", func(t *testing.T) {
		service, _, clock := setupServiceTest(t)

		// given
		created, err := service.Create(context.Background(), Task{Title: "Review PR"})
		require.NoError(t, err)

		later := serviceTestNow.Add(time.Hour)
		clock.SetNow(later)

		// when
		toUpdate := *created
		toUpdate.Status = StatusDone
		updated, err := service.Update(context.Background(), toUpdate)

		// then
		require.NoError(t, err)
		require.NotNil(t, updated.CompletedAt)
		assert.Equal(t, later, *updated.CompletedAt)
	})

	t.Run("should keep the original completion time while the task stays done", func(t *testing.T) {
		service, _, clock := setupServiceTest(t)

		// given
		created, err := service.Create(context.Background(), Task{Title: "Ship release", Status: StatusDone})
		require.NoError(t, err)

		clock.SetNow(serviceTestNow.Add(2 * time.Hour))

		// when - only the title changes
		toUpdate := *created
		toUpdate.Title = "Ship release v2"
		updated, err := service.Update(context.Background(), toUpdate)

		// then
		require.NoError(t, err)
		require.NotNil(t, updated.CompletedAt)
		assert.Equal(t, serviceTestNow, *updated.CompletedAt)
	})

	t.Run("should clear completion when a task is reopened", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// given
		created, err := service.Create(context.Background(), Task{Title: "Ship release", Status: StatusDone})
		require.NoError(t, err)

		// when
		toUpdate := *created
		toUpdate.Status = StatusTodo
		updated, err := service.Update(context.Background(), toUpdate)

		// then
		require.NoError(t, err)
		assert.Nil(t, updated.CompletedAt)
	})

	t.Run("should return not found for a missing task", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// when
		_, err := service.Update(context.Background(), Task{ID: "missing", Title: "Task", Status: StatusTodo})

		// then
		require.ErrorIs(t, err, ErrTaskNotFound)
	})
}

func TestServiceImpl_UpdateStatus(t *testing.T) {
	t.Run("should move a task to in progress", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// given
		created, err := service.Create(context.Background(), Task{Title: "Refactor importer"})
		require.NoError(t, err)

		// when
		updated, err := service.UpdateStatus(context.Background(), created.ID, StatusInProgress)

		// then
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, updated.Status)
		assert.Nil(t, updated.CompletedAt)
	})

	t.Run("should stamp completion on done", func(t *testing.T) {
		service, _, clock := setupServiceTest(t)

		// given
		created, err := service.Create(context.Background(), Task{Title: "Refactor importer"})
		require.NoError(t, err)

		later := serviceTestNow.Add(45 * time.Minute)
		clock.SetNow(later)

		// when
		updated, err := service.UpdateStatus(context.Background(), created.ID, StatusDone)

		// then
		require.NoError(t, err)
		require.NotNil(t, updated.CompletedAt)
		assert.Equal(t, later, *updated.CompletedAt)
		assert.Equal(t, later, updated.UpdatedAt)
	})

	t.Run("should clear completion when reopened", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// given
		created, err := service.Create(context.Background(), Task{Title: "Refactor importer", Status: StatusDone})
		require.NoError(t, err)

		// when
		updated, err := service.UpdateStatus(context.Background(), created.ID, StatusTodo)

		// then
		require.NoError(t, err)
		assert.Equal(t, StatusTodo, updated.Status)
		assert.Nil(t, updated.CompletedAt)
	})

	t.Run("should reject an unknown status", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// given
		created, err := service.Create(context.Background(), Task{Title: "Refactor importer"})
		require.NoError(t, err)

		// when
		_, err = service.UpdateStatus(context.Background(), created.ID, "paused")

		// then
		require.ErrorIs(t, err, ErrInvalidTask)
	})

	t.Run("should return not found for a missing task", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// when
		_, err := service.UpdateStatus(context.Background(), "missing", StatusDone)

		// then
		require.ErrorIs(t, err, ErrTaskNotFound)
	})
}

func TestServiceImpl_List(t *testing.T) {
	t.Run("should filter tasks by status", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// given
		_, err := service.Create(context.Background(), Task{Title: "Open task"})
		require.NoError(t, err)
		done, err := service.Create(context.Background(), Task{Title: "Done task", Status: StatusDone})
		require.NoError(t, err)

		// when
		tasks, err := service.List(context.Background(), Filter{Status: StatusDone})

		// then
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, done.ID, tasks[0].ID)
	})

	t.Run("should reject an unknown status filter", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// when
		_, err := service.List(context.Background(), Filter{Status: "archived"})

		// then
		require.ErrorIs(t, err, ErrInvalidTask)
	})
}

func TestServiceImpl_Delete(t *testing.T) {
	t.Run("should delete an existing task", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// given
		created, err := service.Create(context.Background(), Task{Title: "Temporary"})
		require.NoError(t, err)

		// when
		err = service.Delete(context.Background(), created.ID)

		// then
		require.NoError(t, err)
		_, err = service.Get(context.Background(), created.ID)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("should return not found for a missing task", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// when
		err := service.Delete(context.Background(), "missing")

		// then
		require.ErrorIs(t, err, ErrTaskNotFound)
	})
}

func TestServiceImpl_FindByEventID(t *testing.T) {
	t.Run("should find the task linked to an event", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// given
		created, err := service.Create(context.Background(), Task{Title: "Team standup", EventID: "event-1a2b-0"})
		require.NoError(t, err)

		// when
		found, err := service.FindByEventID(context.Background(), "event-1a2b-0")

		// then
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("should return not found when no task links to the event", func(t *testing.T) {
		service, _, _ := setupServiceTest(t)

		// when
		_, err := service.FindByEventID(context.Background(), "event-unknown")

		// then
		require.ErrorIs(t, err, ErrTaskNotFound)
	})
}
