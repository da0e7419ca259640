// Package config loads the process-wide configuration spec §6 names:
// upstream connection details, the scheduling engine's tunables, retry
// policy, and the ambient server/observability settings — the same
// caarlos0/env + go-playground/validator pipeline the teacher uses.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env  string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port string `env:"PORT" envDefault:"8080" validate:"required"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"required,oneof=debug info warn error"`

	// ServiceTokenKey guards the internal consumer API (spec §6); this
	// process has no end-user login of its own, only the Crossmark
	// session described below, so a single long-lived operator token
	// signed with this key stands in for the teacher's per-user JWT.
	ServiceTokenKey string `env:"SERVICE_TOKEN_KEY,required" validate:"required"`

	// Crossmark upstream connection (spec §4.6/§6).
	CrossmarkBaseURL        string        `env:"CROSSMARK_BASE_URL,required" validate:"required,url"`
	CrossmarkUsername       string        `env:"CROSSMARK_USERNAME,required" validate:"required"`
	CrossmarkPassword       string        `env:"CROSSMARK_PASSWORD,required" validate:"required"`
	CrossmarkRequestTimeout time.Duration `env:"CROSSMARK_REQUEST_TIMEOUT" envDefault:"30s"`
	CrossmarkSessionRefresh time.Duration `env:"CROSSMARK_SESSION_REFRESH" envDefault:"1h"`
	CrossmarkLocalOffset    string        `env:"CROSSMARK_LOCAL_OFFSET" envDefault:"-05:00" validate:"required"`

	// Scheduling engine (spec §4.4/§6).
	SchedulingWindowDays int    `env:"SCHEDULING_WINDOW_DAYS" envDefault:"21" validate:"min=1,max=90"`
	CoreSlots            string `env:"CORE_SLOTS" envDefault:"09:45,10:30,11:00,11:30"`
	CoreDailyCap         int    `env:"CORE_DAILY_CAP" envDefault:"1" validate:"min=1"`
	// ClubSupervisorNoonExemptFromConflict resolves the §9 open question
	// on whether the Club Supervisor's noon Other/Supervisor slot is
	// exempt from the overlap-conflict check. Default true per spec §9.
	ClubSupervisorNoonExemptFromConflict bool `env:"CLUB_SUPERVISOR_NOON_EXEMPT_FROM_CONFLICT" envDefault:"true"`

	// Background task runner (spec §4.7/§6).
	TaskWorkerConcurrency int           `env:"TASK_WORKER_CONCURRENCY" envDefault:"5" validate:"min=1,max=100"`
	TaskPollInterval      time.Duration `env:"TASK_POLL_INTERVAL" envDefault:"1s"`
	TaskHeartbeatTimeout  time.Duration `env:"TASK_HEARTBEAT_TIMEOUT" envDefault:"90s"`
	ReaperInterval        time.Duration `env:"REAPER_INTERVAL" envDefault:"30s"`
	TaskMaxRetries        int           `env:"TASK_MAX_RETRIES" envDefault:"3" validate:"min=0,max=20"`
	PullEventsCron        string        `env:"PULL_EVENTS_CRON" envDefault:"0 * * * *"`
	PeriodicRunCron       string        `env:"PERIODIC_RUN_CRON" envDefault:"30 5 * * *"`

	// Operator alert email, sent by the task runner on a permanently
	// failed sync (spec §7). Required outside local dev, same as the
	// teacher's magic-link email config.
	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
	AlertToEmail string `env:"ALERT_TO_EMAIL" validate:"required_if=Env production,required_if=Env staging"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SlogLevel converts the LOG_LEVEL string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CoreSlotList splits CoreSlots ("09:45,10:30,...") into the rotating
// slot list the engine walks per Core event (spec §4.4).
func (c *Config) CoreSlotList() []string {
	raw := strings.Split(c.CoreSlots, ",")
	slots := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			slots = append(slots, s)
		}
	}
	return slots
}
