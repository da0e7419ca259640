// cmd/worker hosts the background task runner (C8, spec §4.7): the
// durable push/pull queue against Crossmark, plus the hourly pull and
// periodic scheduler-run cron triggers. It never serves the interactive
// consumer API — that's cmd/server.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/config"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/constraint"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/crossmark"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/email"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/engine"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/health"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/infrastructure/postgres"
	ctxlog "github.com/cyberiseeyou/crossmark-scheduling-core/internal/log"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/metrics"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/resolver"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/rotation"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/tasks"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()
	logger.Info("db connected")

	employeeRepo := postgres.NewEmployeeRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)
	scheduleRepo := postgres.NewScheduleRepository(pool)
	pendingRepo := postgres.NewPendingScheduleRepository(pool)
	runRepo := postgres.NewRunHistoryRepository(pool)
	rotationRepo := postgres.NewRotationRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)

	client := crossmark.New(crossmark.Config{
		BaseURL:        cfg.CrossmarkBaseURL,
		Username:       cfg.CrossmarkUsername,
		Password:       cfg.CrossmarkPassword,
		RequestTimeout: cfg.CrossmarkRequestTimeout,
		SessionRefresh: cfg.CrossmarkSessionRefresh,
		LocalOffset:    cfg.CrossmarkLocalOffset,
	}, logger)

	alerts := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)

	metrics.Register()
	checker := health.NewChecker(pool, client, logger, prometheus.DefaultRegisterer)

	executor := tasks.NewExecutor(client, scheduleRepo, eventRepo, employeeRepo, alerts, cfg.AlertToEmail, logger)
	worker := tasks.NewWorker(taskRepo, executor, cfg.TaskPollInterval, cfg.TaskWorkerConcurrency, logger)
	go worker.Start(ctx)

	reaper := tasks.NewReaper(taskRepo, cfg.ReaperInterval, cfg.TaskHeartbeatTimeout, logger)
	go reaper.Start(ctx)

	rotationMgr := rotation.NewManager(rotationRepo)
	validator := constraint.New(employeeRepo, constraint.Options{
		ClubSupervisorNoonExemptFromConflict: cfg.ClubSupervisorNoonExemptFromConflict,
	})
	resolv := resolver.New(scheduleRepo, validator)
	engineCfg := engine.DefaultConfig()
	engineCfg.WindowDays = cfg.SchedulingWindowDays
	if slots := cfg.CoreSlotList(); len(slots) > 0 {
		engineCfg.CoreSlots = slots
	}
	eng := engine.New(eventRepo, employeeRepo, scheduleRepo, pendingRepo, runRepo, rotationMgr, validator, resolv, engineCfg)

	dispatcher := tasks.NewDispatcher(taskRepo, eng, cfg.PullEventsCron, cfg.PeriodicRunCron, logger)
	go func() {
		if err := dispatcher.Start(ctx); err != nil {
			logger.Error("dispatcher", "error", err)
		}
	}()

	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)
	if mux, ok := metricsSrv.Handler.(*http.ServeMux); ok {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			result := checker.Readiness(r.Context())
			status := http.StatusOK
			if result.Status != "up" {
				status = http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"status":"` + result.Status + `"}`))
		})
	}
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	metrics.WorkerShutdownsTotal.Inc()
	logger.Info("worker shut down")
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
