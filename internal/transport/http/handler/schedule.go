package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/usecase"
	"github.com/gin-gonic/gin"
)

// ScheduleHandler exposes C6's direct Schedule mutations as the
// `schedule`/`reschedule`/`trade`/`change_employee` consumer endpoints
// (spec §6). Each enqueues the matching upstream push task.
type ScheduleHandler struct {
	uc     *usecase.ScheduleUsecase
	logger *slog.Logger
}

func NewScheduleHandler(uc *usecase.ScheduleUsecase, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{uc: uc, logger: logger.With("component", "schedule_handler")}
}

type scheduleResponse struct {
	ID               string     `json:"id"`
	EventRefNum      int        `json:"event_ref_num"`
	EmployeeID       string     `json:"employee_id"`
	ScheduleDatetime time.Time  `json:"schedule_datetime"`
	SyncStatus       string     `json:"sync_status"`
	LastSynced       *time.Time `json:"last_synced,omitempty"`
	APIErrorDetails  *string    `json:"api_error_details,omitempty"`
}

func toScheduleResponse(s *domain.Schedule) scheduleResponse {
	return scheduleResponse{
		ID: s.ID, EventRefNum: s.EventRefNum, EmployeeID: s.EmployeeID,
		ScheduleDatetime: s.ScheduleDatetime, SyncStatus: string(s.SyncStatus),
		LastSynced: s.LastSynced, APIErrorDetails: s.APIErrorDetails,
	}
}

func handleValidationError(ctx *gin.Context, logger *slog.Logger, op string, err error) {
	var hv *usecase.HardViolationError
	switch {
	case errors.As(err, &hv):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"violations": hv.Violations})
	case errors.Is(err, domain.ErrEventNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": errEventNotFound})
	case errors.Is(err, domain.ErrEmployeeNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": errEmployeeNotFound})
	case errors.Is(err, domain.ErrScheduleNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": errScheduleNotFound})
	case errors.Is(err, domain.ErrScheduleConflict):
		ctx.JSON(http.StatusConflict, gin.H{"error": errScheduleConflict})
	default:
		logger.Error(op, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}

type createScheduleRequest struct {
	EventRefNum      int       `json:"event_ref_num" binding:"required"`
	EmployeeID       string    `json:"employee_id"    binding:"required"`
	ScheduleDatetime time.Time `json:"schedule_datetime" binding:"required"`
}

// Create is `POST schedule`.
func (h *ScheduleHandler) Create(ctx *gin.Context) {
	var req createScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.uc.Create(ctx.Request.Context(), ctx.GetString("actor"), req.EventRefNum, req.EmployeeID, req.ScheduleDatetime)
	if err != nil {
		handleValidationError(ctx, h.logger, "create schedule", err)
		return
	}
	ctx.JSON(http.StatusCreated, toScheduleResponse(s))
}

type rescheduleRequest struct {
	ScheduleID       string    `json:"schedule_id"       binding:"required"`
	ScheduleDatetime time.Time `json:"schedule_datetime" binding:"required"`
}

// Reschedule is `POST reschedule`.
func (h *ScheduleHandler) Reschedule(ctx *gin.Context) {
	var req rescheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.uc.Reschedule(ctx.Request.Context(), ctx.GetString("actor"), req.ScheduleID, req.ScheduleDatetime)
	if err != nil {
		handleValidationError(ctx, h.logger, "reschedule", err)
		return
	}
	ctx.JSON(http.StatusOK, toScheduleResponse(s))
}

type changeEmployeeRequest struct {
	ScheduleID    string `json:"schedule_id"     binding:"required"`
	NewEmployeeID string `json:"new_employee_id" binding:"required"`
}

// ChangeEmployee is `POST change_employee`.
func (h *ScheduleHandler) ChangeEmployee(ctx *gin.Context) {
	var req changeEmployeeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.uc.ChangeEmployee(ctx.Request.Context(), ctx.GetString("actor"), req.ScheduleID, req.NewEmployeeID)
	if err != nil {
		handleValidationError(ctx, h.logger, "change_employee", err)
		return
	}
	ctx.JSON(http.StatusOK, toScheduleResponse(s))
}

type tradeRequest struct {
	ScheduleAID string `json:"schedule_a_id" binding:"required"`
	ScheduleBID string `json:"schedule_b_id" binding:"required"`
}

// Trade is `POST trade`.
func (h *ScheduleHandler) Trade(ctx *gin.Context) {
	var req tradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, b, err := h.uc.Trade(ctx.Request.Context(), ctx.GetString("actor"), req.ScheduleAID, req.ScheduleBID)
	if err != nil {
		handleValidationError(ctx, h.logger, "trade", err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"schedule_a": toScheduleResponse(a), "schedule_b": toScheduleResponse(b)})
}

// Delete is `DELETE schedule/{id}`.
func (h *ScheduleHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if err := h.uc.Unschedule(ctx.Request.Context(), ctx.GetString("actor"), id); err != nil {
		handleValidationError(ctx, h.logger, "unschedule", err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Retry is the user-initiated retry spec §4.7 names: returns a failed
// Schedule's sync status to pending and enqueues a fresh push.
func (h *ScheduleHandler) Retry(ctx *gin.Context) {
	id := ctx.Param("id")

	s, err := h.uc.Retry(ctx.Request.Context(), ctx.GetString("actor"), id)
	if err != nil {
		handleValidationError(ctx, h.logger, "retry schedule", err)
		return
	}
	ctx.JSON(http.StatusOK, toScheduleResponse(s))
}
