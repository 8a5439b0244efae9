package task

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service Service
}

type TaskDTO struct {
	ID            string     `json:"id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Status        string     `json:"status,omitempty"`
	Priority      int        `json:"priority,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	EventID       string     `json:"eventId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

type statusDTO struct {
	Status string `json:"status"`
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

// CreateTask godoc
// @Summary Create a new task
// @Description Create a new task with the provided details
// @Tags Task
// @Accept json
// @Produce json
// @Param task body TaskDTO true "Task"
// @Success 201 {object} TaskDTO
// @Failure 400 {string} string "Bad Request"
// @Router /api/task [post]
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new task")
	var taskDTO TaskDTO
	if err := json.NewDecoder(r.Body).Decode(&taskDTO); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), dtoToTask(taskDTO))
	if err != nil {
		if errors.Is(err, ErrInvalidTask) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(taskToDTO(*created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// GetTask godoc
// @Summary Get a task
// @Description Get a single task by ID
// @Tags Task
// @Produce json
// @Param taskId path string true "Task ID"
// @Success 200 {object} TaskDTO
// @Failure 404 {string} string "Task not found"
// @Router /api/task/{taskId} [get]
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	taskId := vars["taskId"]

	found, err := h.service.Get(r.Context(), taskId)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(taskToDTO(*found)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// ListTasks godoc
// @Summary List tasks
// @Description Get all tasks, optionally filtered by status, tag and due date
// @Tags Task
// @Produce json
// @Param status query string false "Task status" Enums(todo, in_progress, done)
// @Param tag query string false "Tag"
// @Param dueBefore query string false "Only tasks due on or before this time (RFC 3339)"
// @Success 200 {array} TaskDTO
// @Failure 400 {string} string "Bad Request"
// @Router /api/task [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Status: Status(r.URL.Query().Get("status")),
		Tag:    r.URL.Query().Get("tag"),
	}
	if dueBefore := r.URL.Query().Get("dueBefore"); dueBefore != "" {
		parsed, err := time.Parse(time.RFC3339, dueBefore)
		if err != nil {
			http.Error(w, "Invalid dueBefore date format", http.StatusBadRequest)
			return
		}
		filter.DueBefore = &parsed
	}

	tasks, err := h.service.List(r.Context(), filter)
	if err != nil {
		if errors.Is(err, ErrInvalidTask) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	taskDTOs := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		taskDTOs = append(taskDTOs, taskToDTO(t))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(taskDTOs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// UpdateTask godoc
// @Summary Update a task
// @Description Replace a task with the provided details
// @Tags Task
// @Accept json
// @Produce json
// @Param taskId path string true "Task ID"
// @Param task body TaskDTO true "Task"
// @Success 200 {object} TaskDTO
// @Failure 400 {string} string "Bad Request"
// @Failure 404 {string} string "Task not found"
// @Router /api/task/{taskId} [put]
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	taskId := vars["taskId"]

	var taskDTO TaskDTO
	if err := json.NewDecoder(r.Body).Decode(&taskDTO); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if taskDTO.ID != "" && taskDTO.ID != taskId {
		http.Error(w, "Invalid task id in request body", http.StatusBadRequest)
		return
	}
	toUpdate := dtoToTask(taskDTO)
	toUpdate.ID = taskId

	updated, err := h.service.Update(r.Context(), toUpdate)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrInvalidTask) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(taskToDTO(*updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// UpdateTaskStatus godoc
// @Summary Change task status
// @Description Move a task to a new status
// @Tags Task
// @Accept json
// @Produce json
// @Param taskId path string true "Task ID"
// @Param status body statusDTO true "New status"
// @Success 200 {object} TaskDTO
// @Failure 400 {string} string "Bad Request"
// @Failure 404 {string} string "Task not found"
// @Router /api/task/{taskId}/status [patch]
func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	taskId := vars["taskId"]

	var body statusDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.service.UpdateStatus(r.Context(), taskId, Status(body.Status))
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrInvalidTask) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(taskToDTO(*updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// DeleteTask godoc
// @Summary Delete a task
// @Description Delete a task by ID
// @Tags Task
// @Param taskId path string true "Task ID"
// @Success 204 "No Content"
// @Failure 404 {string} string "Task not found"
// @Router /api/task/{taskId} [delete]
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	vars := mux.Vars(r)
	taskId := vars["taskId"]
	if err := h.service.Delete(r.Context(), taskId); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func taskToDTO(t Task) TaskDTO {
	return TaskDTO{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        string(t.Status),
		Priority:      t.Priority,
		DueDate:       t.DueDate,
		ScheduledDate: t.ScheduledDate,
		Tags:          t.Tags,
		EventID:       t.EventID,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		CompletedAt:   t.CompletedAt,
	}
}

func dtoToTask(dto TaskDTO) Task {
	return Task{
		ID:            dto.ID,
		Title:         dto.Title,
		Description:   dto.Description,
		Status:        Status(dto.Status),
		Priority:      dto.Priority,
		DueDate:       dto.DueDate,
		ScheduledDate: dto.ScheduledDate,
		Tags:          dto.Tags,
		EventID:       dto.EventID,
		CompletedAt:   dto.CompletedAt,
	}
}
