package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Task runner metrics (C8)

	TaskPickupLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crossmark_sync",
		Name:      "task_pickup_latency_seconds",
		Help:      "Time from task creation to worker claiming it.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	TaskExecutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crossmark_sync",
		Name:      "task_execution_duration_seconds",
		Help:      "Duration of a single task execution, by kind.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"kind"})

	TasksInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "crossmark_sync",
		Name:      "worker_tasks_in_flight",
		Help:      "Number of tasks currently being executed by the worker.",
	})

	TasksCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossmark_sync",
		Name:      "tasks_completed_total",
		Help:      "Total tasks finished, by kind and outcome.",
	}, []string{"kind", "outcome"})

	// Reaper metrics

	ReaperRescuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossmark_sync",
		Name:      "reaper_rescued_total",
		Help:      "Total stale tasks handled by the reaper.",
	}, []string{"action"})

	ReaperCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "crossmark_sync",
		Name:      "reaper_cycle_duration_seconds",
		Help:      "Time taken for one reaper cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// Worker lifecycle

	WorkerStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "crossmark_sync",
		Name:      "worker_start_time_seconds",
		Help:      "Unix timestamp when the worker started.",
	})

	WorkerShutdownsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "crossmark_sync",
		Name:      "worker_shutdowns_total",
		Help:      "Number of times the worker has shut down.",
	})

	// Scheduler engine metrics (C5)

	SchedulerRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crossmark_sync",
		Name:      "scheduler_run_duration_seconds",
		Help:      "Duration of a full three-phase scheduler run, by run type.",
		Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"run_type"})

	SchedulerRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossmark_sync",
		Name:      "scheduler_runs_total",
		Help:      "Total scheduler runs, by run type and outcome.",
	}, []string{"run_type", "outcome"})

	SchedulerAssignmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossmark_sync",
		Name:      "scheduler_assignments_total",
		Help:      "Total event assignments made by the scheduler, by disposition.",
	}, []string{"disposition"})

	// Crossmark upstream client metrics (C7)

	CrossmarkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crossmark_sync",
		Name:      "upstream_request_duration_seconds",
		Help:      "Duration of a request to the Crossmark upstream API.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"operation", "status"})

	CrossmarkSessionRefreshTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "crossmark_sync",
		Name:      "upstream_session_refresh_total",
		Help:      "Total times the Crossmark session was re-established.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crossmark_sync",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crossmark_sync",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		TaskPickupLatency,
		TaskExecutionDuration,
		TasksInFlight,
		TasksCompletedTotal,
		ReaperRescuedTotal,
		ReaperCycleDuration,
		WorkerStartTime,
		WorkerShutdownsTotal,
		SchedulerRunDuration,
		SchedulerRunsTotal,
		SchedulerAssignmentsTotal,
		CrossmarkRequestDuration,
		CrossmarkSessionRefreshTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
