// Package httptransport wires the internal consumer API (spec §6) the
// excluded UI/CLI collaborators call: rotations, the auto-scheduling
// review/approval workflow, direct schedule mutations, and sync admin.
package httptransport

import (
	"log/slog"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/transport/http/handler"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(
	logger *slog.Logger,
	rotationHandler *handler.RotationHandler,
	schedulerHandler *handler.SchedulerHandler,
	scheduleHandler *handler.ScheduleHandler,
	syncHandler *handler.SyncHandler,
	serviceTokenKey []byte,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), sloggin.New(logger), middleware.Metrics())

	// Unauthenticated liveness/readiness probe, mirrors sync/health.
	r.GET("/healthz", syncHandler.Health)

	api := r.Group("/", middleware.Auth(serviceTokenKey))

	rotations := api.Group("/rotations")
	rotations.GET("", rotationHandler.List)
	rotations.PUT("", rotationHandler.Update)
	api.POST("/rotation_exceptions", rotationHandler.AddException)
	api.DELETE("/rotation_exceptions/:id", rotationHandler.DeleteException)

	autoSchedule := api.Group("/auto_schedule")
	autoSchedule.POST("/run", schedulerHandler.TriggerRun)
	autoSchedule.GET("/runs", schedulerHandler.ListRuns)
	autoSchedule.GET("/runs/:id", schedulerHandler.GetRun)
	autoSchedule.PUT("/proposals/:id", schedulerHandler.EditProposal)
	autoSchedule.POST("/runs/:id/approve", schedulerHandler.ApproveRun)
	autoSchedule.POST("/runs/:id/reject", schedulerHandler.RejectRun)

	api.POST("/schedule", scheduleHandler.Create)
	api.POST("/reschedule", scheduleHandler.Reschedule)
	api.POST("/trade", scheduleHandler.Trade)
	api.POST("/change_employee", scheduleHandler.ChangeEmployee)
	api.DELETE("/schedule/:id", scheduleHandler.Delete)
	api.POST("/schedule/:id/retry", scheduleHandler.Retry)

	sync := api.Group("/sync")
	sync.GET("/health", syncHandler.Health)
	sync.POST("/trigger", syncHandler.Trigger)
	sync.GET("/status", syncHandler.Status)

	return r
}
