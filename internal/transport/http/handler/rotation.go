package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/rotation"
	"github.com/gin-gonic/gin"
)

// RotationHandler exposes C2's weekday-indexed rotation lookups as the
// `rotations`/`rotation_exceptions` consumer endpoints (spec §6).
type RotationHandler struct {
	mgr    *rotation.Manager
	logger *slog.Logger
}

func NewRotationHandler(mgr *rotation.Manager, logger *slog.Logger) *RotationHandler {
	return &RotationHandler{mgr: mgr, logger: logger.With("component", "rotation_handler")}
}

type dailyRotationResponse struct {
	Weekday      int                  `json:"weekday"`
	RotationType domain.RotationType  `json:"rotation_type"`
	EmployeeID   *string              `json:"employee_id,omitempty"`
}

func toDailyRotationResponse(d domain.DailyRotation) dailyRotationResponse {
	return dailyRotationResponse{Weekday: d.Weekday, RotationType: d.RotationType, EmployeeID: d.EmployeeID}
}

// List is `GET rotations`: the full weekday x rotation_type grid.
func (h *RotationHandler) List(ctx *gin.Context) {
	entries, err := h.mgr.ListWeekly(ctx.Request.Context())
	if err != nil {
		h.logger.Error("list rotations", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]dailyRotationResponse, len(entries))
	for i, e := range entries {
		items[i] = toDailyRotationResponse(e)
	}
	ctx.JSON(http.StatusOK, gin.H{"rotations": items})
}

type setRotationEntry struct {
	Weekday      int                 `json:"weekday"       binding:"min=0,max=6"`
	RotationType domain.RotationType `json:"rotation_type" binding:"required"`
	EmployeeID   string              `json:"employee_id"   binding:"required"`
}

type setRotationsRequest struct {
	Entries []setRotationEntry `json:"entries" binding:"required,dive"`
}

// Update is `PUT rotations`: an atomic bulk write of the weekly pattern.
func (h *RotationHandler) Update(ctx *gin.Context) {
	var req setRotationsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries := make([]domain.DailyRotation, len(req.Entries))
	for i, e := range req.Entries {
		employeeID := e.EmployeeID
		entries[i] = domain.DailyRotation{Weekday: e.Weekday, RotationType: e.RotationType, EmployeeID: &employeeID}
	}

	ok, errs := h.mgr.SetAllWeekly(ctx.Request.Context(), entries)
	if !ok {
		messages := make([]string, len(errs))
		for i, e := range errs {
			messages[i] = e.Error()
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"errors": messages})
		return
	}

	ctx.Status(http.StatusNoContent)
}

type addExceptionRequest struct {
	RotationType domain.RotationType `json:"rotation_type" binding:"required"`
	Date         string              `json:"date"           binding:"required"`
	EmployeeID   string              `json:"employee_id"    binding:"required"`
	Reason       string              `json:"reason"`
}

// AddException is `POST rotation_exceptions`.
func (h *RotationHandler) AddException(ctx *gin.Context) {
	var req addExceptionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.mgr.AddException(ctx.Request.Context(), domain.ScheduleException{
		RotationType: req.RotationType,
		Date:         req.Date,
		EmployeeID:   req.EmployeeID,
		Reason:       req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownRotationType):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errUnknownRotationType})
		case errors.Is(err, domain.ErrUnknownEmployee):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errUnknownEmployee})
		default:
			h.logger.Error("add rotation exception", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// DeleteException is `DELETE rotation_exceptions/{id}`.
func (h *RotationHandler) DeleteException(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := h.mgr.DeleteException(ctx.Request.Context(), id); err != nil {
		h.logger.Error("delete rotation exception", "exception_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	ctx.Status(http.StatusNoContent)
}
