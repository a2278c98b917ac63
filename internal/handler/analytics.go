package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sakif/mylist/internal/analytics"
	"github.com/sakif/mylist/internal/apperror"
	"github.com/sakif/mylist/internal/service"
)

// AnalyticsHandler serves the counters and charts of the analytics page.
// Dates are bucketed in loc.
type AnalyticsHandler struct {
	tasks  *service.TaskService
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

func NewAnalyticsHandler(tasks *service.TaskService, loc *time.Location, now func() time.Time, logger *slog.Logger) *AnalyticsHandler {
	if now == nil {
		now = time.Now
	}
	return &AnalyticsHandler{tasks: tasks, loc: loc, now: now, logger: logger}
}

// HandleSummary returns total, done, pending and completion rate.
//
// HTTP: GET /api/analytics/summary
func (h *AnalyticsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, analytics.Summarize(h.tasks.List()))
}

// HandleWeekly returns completions per weekday, Sunday first.
//
// HTTP: GET /api/analytics/weekly
func (h *AnalyticsHandler) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, analytics.WeeklyChart(h.tasks.List(), h.loc))
}

// HandleMonthly returns completions per day of one month, the current one
// unless year and month are given.
//
// HTTP: GET /api/analytics/monthly?year=2024&month=6
func (h *AnalyticsHandler) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.loc)
	year, month := now.Year(), now.Month()

	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			writeError(w, apperror.ValidationFailed("year", "year must be a positive number"))
			return
		}
		year = y
	}
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, apperror.ValidationFailed("month", "month must be between 1 and 12"))
			return
		}
		month = time.Month(m)
	}

	writeJSON(w, http.StatusOK, analytics.MonthlyChart(h.tasks.List(), year, month, h.loc))
}
