package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/health"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/repository"
	"github.com/gin-gonic/gin"
)

// SyncHandler exposes C7/C8's health and admin surface as the
// `sync/health`, `sync/trigger`, `sync/status` consumer endpoints
// (spec §6), so an operator can check on or kick the reconciliation
// pipeline without touching the database directly.
type SyncHandler struct {
	checker *health.Checker
	tasks   repository.TaskRepository
	logger  *slog.Logger
}

func NewSyncHandler(checker *health.Checker, tasks repository.TaskRepository, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{checker: checker, tasks: tasks, logger: logger.With("component", "sync_handler")}
}

// Health is `GET sync/health`.
func (h *SyncHandler) Health(ctx *gin.Context) {
	result := h.checker.Readiness(ctx.Request.Context())
	status := http.StatusOK
	if result.Status != "up" {
		status = http.StatusServiceUnavailable
	}
	ctx.JSON(status, result)
}

// Trigger is `POST sync/trigger`: enqueues an out-of-band pull_events
// task, the same one the hourly dispatcher fires (spec §4.7).
func (h *SyncHandler) Trigger(ctx *gin.Context) {
	task, err := h.tasks.Enqueue(ctx.Request.Context(), &domain.Task{
		Kind:       domain.TaskPullEvents,
		Status:     domain.TaskStatusPending,
		MaxRetries: 0,
		RunAt:      time.Now(),
	})
	if err != nil {
		h.logger.Error("trigger sync", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"task_id": task.ID})
}

// Status is `GET sync/status`: a count of background tasks by status,
// giving an operator visibility into the push/pull queue depth.
func (h *SyncHandler) Status(ctx *gin.Context) {
	counts, err := h.tasks.CountByStatus(ctx.Request.Context())
	if err != nil {
		h.logger.Error("sync status", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"task_counts": counts})
}
