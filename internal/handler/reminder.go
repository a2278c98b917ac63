package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/mylist/internal/reminder"
)

// ReminderHandler exposes the reminder schedule and the in-app alerts.
type ReminderHandler struct {
	scheduler *reminder.Scheduler
	logger    *slog.Logger
}

func NewReminderHandler(scheduler *reminder.Scheduler, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{scheduler: scheduler, logger: logger}
}

// HandlePending lists scheduled reminders in fire order.
//
// HTTP: GET /api/reminders
func (h *ReminderHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.scheduler.Pending())
}

// HandleAlerts lists fired reminders that have not been dismissed.
//
// HTTP: GET /api/alerts
func (h *ReminderHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.scheduler.Inbox().List())
}

// HandleDismiss closes one alert.
//
// HTTP: DELETE /api/alerts/{id}
func (h *ReminderHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Inbox().Dismiss(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
