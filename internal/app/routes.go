package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/taskvault/taskvault/internal/metrics"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Calendar subscription
	r.HandleFunc("/api/calendar/event", deps.SubscriptionHandler.GetEvents).Methods("GET")
	r.HandleFunc("/api/calendar/refresh", deps.SubscriptionHandler.RefreshFeed).Methods("POST")
	r.HandleFunc("/api/calendar/status", deps.SubscriptionHandler.GetStatus).Methods("GET")
	r.HandleFunc("/api/calendar/import", deps.ImportHandler.ImportEvents).Methods("POST")

	// Tasks
	r.HandleFunc("/api/task", deps.TaskHandler.ListTasks).Methods("GET")
	r.HandleFunc("/api/task", deps.TaskHandler.CreateTask).Methods("POST")
	r.HandleFunc("/api/task/{taskId}", deps.TaskHandler.GetTask).Methods("GET")
	r.HandleFunc("/api/task/{taskId}", deps.TaskHandler.UpdateTask).Methods("PUT")
	r.HandleFunc("/api/task/{taskId}/status", deps.TaskHandler.UpdateTaskStatus).Methods("PATCH")
	r.HandleFunc("/api/task/{taskId}", deps.TaskHandler.DeleteTask).Methods("DELETE")

	// Operations
	r.HandleFunc("/health", healthHandler).Methods("GET")
	r.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer)).Methods("GET")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
