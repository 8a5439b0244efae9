package task_import

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type Handler struct {
	importer *Importer
}

func NewHandler(importer *Importer) *Handler {
	return &Handler{importer}
}

// ImportEvents godoc
// @Summary Import calendar events as tasks
// @Description Create tasks for upcoming calendar events that have none yet
// @Tags Calendar
// @Produce json
// @Success 200 {object} ImportResult
// @Router /api/calendar/import [post]
func (h *Handler) ImportEvents(w http.ResponseWriter, r *http.Request) {
	log.Debug("Importing calendar events as tasks")
	result, err := h.importer.Run(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
