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
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/engine"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/health"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/infrastructure/postgres"
	ctxlog "github.com/cyberiseeyou/crossmark-scheduling-core/internal/log"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/metrics"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/resolver"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/rotation"
	httptransport "github.com/cyberiseeyou/crossmark-scheduling-core/internal/transport/http"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/transport/http/handler"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/usecase"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

// main wires the interactive half of the system (spec §5: HTTP handlers
// must never block on a slow upstream call except for the scheduler
// run itself and login-time health checks). The background task runner
// that actually talks to Crossmark lives in cmd/worker.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
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
	auditRepo := postgres.NewAuditRepository(pool)

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

	proposalUC := usecase.NewProposalUsecase(runRepo, pendingRepo, scheduleRepo, eventRepo, employeeRepo, taskRepo, auditRepo, validator)
	scheduleUC := usecase.NewScheduleUsecase(scheduleRepo, eventRepo, employeeRepo, taskRepo, auditRepo, validator)

	// The server process holds no Crossmark session of its own (pushes
	// and pulls happen in cmd/worker); health checks here cover the
	// database only.
	checker := health.NewChecker(pool, nil, logger, prometheus.DefaultRegisterer)

	rotationHandler := handler.NewRotationHandler(rotationMgr, logger)
	schedulerHandler := handler.NewSchedulerHandler(eng, proposalUC, logger)
	scheduleHandler := handler.NewScheduleHandler(scheduleUC, logger)
	syncHandler := handler.NewSyncHandler(checker, taskRepo, logger)

	metrics.Register()

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(
			logger, rotationHandler, schedulerHandler, scheduleHandler, syncHandler,
			[]byte(cfg.ServiceTokenKey),
		),
	}
	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

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
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
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
