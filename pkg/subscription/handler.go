package subscription

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskvault/taskvault/internal/rest"
)

type Handler struct {
	subscription Service
}

func NewHandler(s Service) *Handler {
	return &Handler{s}
}

// GetEvents returns the currently cached calendar events.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	events := h.subscription.Events()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(events); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// RefreshFeed forces an immediate refresh and reports the resulting status.
// Network failures map to 502 and format failures to 422 so a client can tell
// "cannot reach it" apart from "it is garbled".
func (h *Handler) RefreshFeed(w http.ResponseWriter, r *http.Request) {
	if err := h.subscription.Refresh(r.Context()); err != nil {
		status := http.StatusInternalServerError
		message := "Calendar refresh failed"
		switch {
		case errors.Is(err, ErrFeedUnreachable):
			status = http.StatusBadGateway
			message = "Calendar feed unreachable"
		case errors.Is(err, ErrFeedFormat):
			status = http.StatusUnprocessableEntity
			message = "Invalid calendar format"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error:   message,
			Details: err.Error(),
		}); encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}

	h.writeStatus(w, r)
}

// GetStatus reports feed and cache diagnostics.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r)
}

func (h *Handler) writeStatus(w http.ResponseWriter, r *http.Request) {
	status := h.subscription.Status(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
