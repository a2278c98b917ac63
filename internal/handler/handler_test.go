package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/mylist/internal/auth"
	"github.com/sakif/mylist/internal/handler"
	"github.com/sakif/mylist/internal/kv"
	"github.com/sakif/mylist/internal/reminder"
	"github.com/sakif/mylist/internal/repository/kvstore"
	"github.com/sakif/mylist/internal/service"
)

// =========================================================================
// TEST HARNESS
// =========================================================================
//
// Handlers run against real services on an in-memory store. Only the
// clock is fixed.

var testNow = time.Date(2024, 6, 10, 8, 50, 0, 0, time.UTC)

type harness struct {
	t         *testing.T
	router    chi.Router
	mem       *kv.Memory
	scheduler *reminder.Scheduler
	accounts  *handler.AccountHandler
	cookies   []*http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	clock := func() time.Time { return testNow }

	mem := kv.NewMemory()
	store := kvstore.New(mem, kvstore.DefaultPrefix)
	sched := reminder.New(reminder.Options{Location: time.UTC}, logger)
	session := service.NewSession(store.Sessions(), store.Users(), store.Tasks(), logger,
		service.WithScheduler(sched), service.WithClock(clock))
	accounts := service.NewAccountService(session, nil, logger)
	tasks := service.NewTaskService(session, nil, logger)

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", 0)
	require.NoError(t, err)

	th := handler.NewTaskHandler(tasks, logger)
	ah := handler.NewAccountHandler(accounts, tokens, logger)
	an := handler.NewAnalyticsHandler(tasks, time.UTC, clock, logger)
	rh := handler.NewReminderHandler(sched, logger)

	r := chi.NewRouter()
	r.Get("/api/tasks", th.HandleList)
	r.Post("/api/tasks", th.HandleCreate)
	r.Put("/api/tasks/{id}", th.HandleUpdate)
	r.Post("/api/tasks/{id}/toggle", th.HandleToggle)
	r.Delete("/api/tasks/{id}", th.HandleDelete)
	r.Get("/api/progress", th.HandleProgress)
	r.Get("/api/analytics/summary", an.HandleSummary)
	r.Get("/api/analytics/weekly", an.HandleWeekly)
	r.Get("/api/analytics/monthly", an.HandleMonthly)
	r.Post("/api/account/register", ah.HandleRegister)
	r.Post("/api/account/login", ah.HandleLogin)
	r.Post("/api/account/logout", ah.HandleLogout)
	r.Get("/api/account", ah.HandleProfile)
	r.With(auth.RequireAuth(tokens, accounts.CurrentEmail)).Delete("/api/account", ah.HandleDelete)
	r.Get("/api/reminders", rh.HandlePending)
	r.Get("/api/alerts", rh.HandleAlerts)
	r.Delete("/api/alerts/{id}", rh.HandleDismiss)

	return &harness{t: t, router: r, mem: mem, scheduler: sched, accounts: ah}
}

// do sends a request, carrying cookies between calls like a browser.
func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(h.t, err)
		rd = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range h.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		h.setCookie(c)
	}
	return rec
}

func (h *harness) setCookie(c *http.Cookie) {
	var kept []*http.Cookie
	for _, old := range h.cookies {
		if old.Name != c.Name {
			kept = append(kept, old)
		}
	}
	if c.MaxAge >= 0 && c.Value != "" {
		kept = append(kept, c)
	}
	h.cookies = kept
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func (h *harness) register(email string) {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/account/register", map[string]string{
		"name": "Lina", "email": email, "gender": "female",
		"password": "secret1", "confirm": "secret1",
	})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
}
