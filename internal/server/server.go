// Package server wires the application together and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	config.Config
//	  → kv.Store (sqlite | redis | memory)
//	  → kvstore.Store → service.Session (+ reminder.Scheduler)
//	  → AccountService / TaskService
//	  → handlers → chi routes
//
// Everything is assembled in New; no other package constructs services.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/mylist/internal/apperror"
	"github.com/sakif/mylist/internal/auth"
	"github.com/sakif/mylist/internal/config"
	"github.com/sakif/mylist/internal/handler"
	"github.com/sakif/mylist/internal/kv"
	"github.com/sakif/mylist/internal/kv/rediskv"
	"github.com/sakif/mylist/internal/kv/sqlite"
	"github.com/sakif/mylist/internal/metrics"
	"github.com/sakif/mylist/internal/middleware"
	"github.com/sakif/mylist/internal/reminder"
	"github.com/sakif/mylist/internal/repository/kvstore"
	"github.com/sakif/mylist/internal/service"
)

// Server owns the store connection, the reminder scheduler and the router.
type Server struct {
	router    *chi.Mux
	config    config.Config
	logger    *slog.Logger
	store     kv.Store
	scheduler *reminder.Scheduler
	metrics   *metrics.Metrics
}

// New opens the configured store and builds the server on it.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStore(context.Background(), cfg.Storage)
	if err != nil {
		return nil, err
	}

	s, err := NewWithStore(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// OpenStore connects to the backend named by cfg.Backend.
func OpenStore(ctx context.Context, cfg config.Storage) (kv.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("server: opening sqlite store: %w", err)
		}
		return db, nil
	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rs, err := rediskv.New(ctx, rediskv.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("server: opening redis store: %w", err)
		}
		return rs, nil
	case config.BackendMemory:
		return kv.NewMemory(), nil
	default:
		return nil, fmt.Errorf("server: unknown storage backend %q", cfg.Backend)
	}
}

// NewWithStore builds the server on an already opened store. The server
// takes ownership of store and closes it when Start returns.
func NewWithStore(cfg config.Config, store kv.Store, logger *slog.Logger) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.TokenTTL())
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		store:   store,
		metrics: metrics.New(),
	}

	// === REMINDERS ===
	notifiers := reminder.MultiNotifier{reminder.NewLogNotifier(logger)}
	email := reminder.EmailConfig{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUser,
		Password: cfg.Email.SMTPPass,
		From:     cfg.Email.From,
	}
	if email.Enabled() {
		notifiers = append(notifiers, reminder.NewEmailNotifier(email, logger))
	}
	s.scheduler = reminder.New(reminder.Options{
		Location:   loc,
		Notifier:   notifiers,
		Permission: reminder.NewConfigPermission(cfg.Reminders.Notifications),
		Inbox:      reminder.NewInbox(cfg.Reminders.InboxSize),
		Metrics:    s.metrics,
	}, logger)

	// === SESSION & SERVICES ===
	records := kvstore.New(store, cfg.Storage.KeyPrefix)
	session := service.NewSession(records.Sessions(), records.Users(), records.Tasks(), logger,
		service.WithScheduler(s.scheduler))

	// A corrupt account record leaves the app usable in guest mode, so it
	// is logged instead of refusing to start.
	if err := session.Reload(context.Background()); err != nil {
		if !errors.Is(err, apperror.ErrCorrupt) {
			return nil, fmt.Errorf("server: restoring session: %w", err)
		}
		logger.Error("stored account is corrupt, starting as guest", slog.String("error", err.Error()))
	}

	accounts := service.NewAccountService(session, s.metrics, logger)
	tasks := service.NewTaskService(session, s.metrics, logger)

	s.setupRoutes(routes{
		tasks:     handler.NewTaskHandler(tasks, logger),
		accounts:  handler.NewAccountHandler(accounts, tokens, logger),
		analytics: handler.NewAnalyticsHandler(tasks, loc, nil, logger),
		reminders: handler.NewReminderHandler(s.scheduler, logger),
		auth:      auth.RequireAuth(tokens, accounts.CurrentEmail),
	})

	return s, nil
}

type routes struct {
	tasks     *handler.TaskHandler
	accounts  *handler.AccountHandler
	analytics *handler.AnalyticsHandler
	reminders *handler.ReminderHandler
	auth      func(http.Handler) http.Handler
}

// setupRoutes registers middleware and every route.
//
// Middleware runs in the order added: request id, real ip, panic
// recovery, then request logging and metrics.
func (s *Server) setupRoutes(h routes) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger, s.metrics))

	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/tasks", h.tasks.HandleList)
		r.Post("/tasks", h.tasks.HandleCreate)
		r.Put("/tasks/{id}", h.tasks.HandleUpdate)
		r.Post("/tasks/{id}/toggle", h.tasks.HandleToggle)
		r.Delete("/tasks/{id}", h.tasks.HandleDelete)
		r.Get("/progress", h.tasks.HandleProgress)

		r.Get("/analytics/summary", h.analytics.HandleSummary)
		r.Get("/analytics/weekly", h.analytics.HandleWeekly)
		r.Get("/analytics/monthly", h.analytics.HandleMonthly)

		r.Post("/account/register", h.accounts.HandleRegister)
		r.Post("/account/login", h.accounts.HandleLogin)
		r.Post("/account/logout", h.accounts.HandleLogout)
		r.Get("/account", h.accounts.HandleProfile)
		r.With(h.auth).Delete("/account", h.accounts.HandleDelete)

		r.Get("/reminders", h.reminders.HandlePending)
		r.Get("/alerts", h.reminders.HandleAlerts)
		r.Delete("/alerts/{id}", h.reminders.HandleDismiss)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Scheduler returns the reminder scheduler Start runs.
func (s *Server) Scheduler() *reminder.Scheduler {
	return s.scheduler
}

// Start serves HTTP and fires reminders until SIGINT or SIGTERM, then shuts
// down gracefully:
//  1. stop accepting connections and drain in-flight requests (30s)
//  2. stop the reminder loop
//  3. close the store
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	runCtx, stopReminders := context.WithCancel(context.Background())
	defer stopReminders()
	reminderDone := make(chan struct{})
	go func() {
		defer close(reminderDone)
		s.scheduler.Run(runCtx, reminder.SystemClock{})
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("backend", s.config.Storage.Backend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			runErr = fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	stopReminders()
	<-reminderDone
	if runErr == nil {
		s.logger.Info("server stopped gracefully")
	}
	return runErr
}
