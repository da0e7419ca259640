package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/usecase"
	"github.com/gin-gonic/gin"
)

// Runner triggers one scheduling pass; satisfied by *engine.Engine.
type Runner interface {
	Run(ctx context.Context, runType domain.RunType) (*domain.RunHistory, error)
}

// SchedulerHandler exposes C5's run trigger and C6's review/approval
// workflow as the `auto_schedule/*` consumer endpoints (spec §6).
type SchedulerHandler struct {
	engine   Runner
	proposal *usecase.ProposalUsecase
	logger   *slog.Logger
}

func NewSchedulerHandler(engine Runner, proposal *usecase.ProposalUsecase, logger *slog.Logger) *SchedulerHandler {
	return &SchedulerHandler{engine: engine, proposal: proposal, logger: logger.With("component", "scheduler_handler")}
}

type runHistoryResponse struct {
	ID             string     `json:"id"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	RunType        string     `json:"run_type"`
	State          string     `json:"state"`
	TotalProcessed int        `json:"total_processed"`
	Scheduled      int        `json:"scheduled"`
	RequiringSwaps int        `json:"requiring_swaps"`
	Failed         int        `json:"failed"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
}

func toRunHistoryResponse(r *domain.RunHistory) runHistoryResponse {
	return runHistoryResponse{
		ID: r.ID, StartedAt: r.StartedAt, EndedAt: r.EndedAt,
		RunType: string(r.RunType), State: string(r.State),
		TotalProcessed: r.TotalProcessed, Scheduled: r.Scheduled,
		RequiringSwaps: r.RequiringSwaps, Failed: r.Failed, ErrorMessage: r.ErrorMessage,
	}
}

// TriggerRun is `POST auto_schedule/run`. It runs the three-phase
// engine synchronously in this handler goroutine — the only place the
// spec allows an HTTP handler to block on something other than a quick
// upstream health check (spec §5).
func (h *SchedulerHandler) TriggerRun(ctx *gin.Context) {
	run, err := h.engine.Run(ctx.Request.Context(), domain.RunTypeManual)
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			ctx.JSON(http.StatusConflict, gin.H{"error": errRunInProgress})
			return
		}
		h.logger.Error("trigger scheduler run", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"run_id": run.ID})
}

// ListRuns is `GET auto_schedule/runs`.
func (h *SchedulerHandler) ListRuns(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	if limit <= 0 {
		limit = 50
	}

	runs, err := h.proposal.ListRuns(ctx.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list runs", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]runHistoryResponse, len(runs))
	for i, r := range runs {
		items[i] = toRunHistoryResponse(r)
	}
	ctx.JSON(http.StatusOK, gin.H{"runs": items})
}

type pendingScheduleResponse struct {
	ID                   string     `json:"id"`
	RunID                string     `json:"run_id"`
	EventRefNum          int        `json:"event_ref_num"`
	EmployeeID           *string    `json:"employee_id,omitempty"`
	ScheduleTime         *time.Time `json:"schedule_datetime,omitempty"`
	Status               string     `json:"status"`
	IsSwap               bool       `json:"is_swap"`
	SwapReason           *string    `json:"swap_reason,omitempty"`
	DisplacedEventRefNum *int       `json:"displaced_event_ref_num,omitempty"`
	FailureReason        *string    `json:"failure_reason,omitempty"`
}

func toPendingResponse(p *domain.PendingSchedule) pendingScheduleResponse {
	return pendingScheduleResponse{
		ID: p.ID, RunID: p.RunID, EventRefNum: p.EventRefNum, EmployeeID: p.EmployeeID,
		ScheduleTime: p.ScheduleTime, Status: string(p.Status), IsSwap: p.IsSwap,
		SwapReason: p.SwapReason, DisplacedEventRefNum: p.DisplacedEventRefNum, FailureReason: p.FailureReason,
	}
}

// GetRun is `GET auto_schedule/runs/{id}`: the run status plus its
// categorized proposals (spec §4.5's list_proposals).
func (h *SchedulerHandler) GetRun(ctx *gin.Context) {
	runID := ctx.Param("id")

	run, err := h.proposal.GetRun(ctx.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errRunNotFound})
			return
		}
		h.logger.Error("get run", "run_id", runID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	cats, err := h.proposal.ListProposals(ctx.Request.Context(), runID)
	if err != nil {
		h.logger.Error("list proposals", "run_id", runID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"run":             toRunHistoryResponse(run),
		"newly_scheduled": toPendingResponses(cats.NewlyScheduled),
		"swaps":           toPendingResponses(cats.Swaps),
		"failed":          toPendingResponses(cats.Failed),
		"daily_preview":   toDailyPreview(cats.DailyPreview),
	})
}

func toPendingResponses(items []*domain.PendingSchedule) []pendingScheduleResponse {
	out := make([]pendingScheduleResponse, len(items))
	for i, p := range items {
		out[i] = toPendingResponse(p)
	}
	return out
}

func toDailyPreview(daily map[string][]*domain.PendingSchedule) map[string][]pendingScheduleResponse {
	out := make(map[string][]pendingScheduleResponse, len(daily))
	for date, items := range daily {
		out[date] = toPendingResponses(items)
	}
	return out
}

type editProposalRequest struct {
	EmployeeID *string    `json:"employee_id"`
	Datetime   *time.Time `json:"schedule_datetime"`
}

// EditProposal is `PUT auto_schedule/proposals/{id}`.
func (h *SchedulerHandler) EditProposal(ctx *gin.Context) {
	id := ctx.Param("id")

	var req editProposalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.proposal.EditProposal(ctx.Request.Context(), id, req.EmployeeID, req.Datetime)
	if err != nil {
		var hv *usecase.HardViolationError
		switch {
		case errors.As(err, &hv):
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"violations": hv.Violations})
		case errors.Is(err, domain.ErrPendingScheduleNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errPendingNotFound})
		case errors.Is(err, domain.ErrPendingScheduleNotOpen):
			ctx.JSON(http.StatusConflict, gin.H{"error": errPendingNotOpen})
		default:
			h.logger.Error("edit proposal", "pending_id", id, "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusOK, toPendingResponse(p))
}

// ApproveRun is `POST auto_schedule/runs/{id}/approve`.
func (h *SchedulerHandler) ApproveRun(ctx *gin.Context) {
	id := ctx.Param("id")

	run, err := h.proposal.ApproveRun(ctx.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRunNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errRunNotFound})
		case errors.Is(err, domain.ErrRunNotReviewable):
			ctx.JSON(http.StatusConflict, gin.H{"error": errRunNotReviewable})
		default:
			h.logger.Error("approve run", "run_id", id, "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusOK, toRunHistoryResponse(run))
}

// RejectRun is `POST auto_schedule/runs/{id}/reject`.
func (h *SchedulerHandler) RejectRun(ctx *gin.Context) {
	id := ctx.Param("id")

	if err := h.proposal.RejectRun(ctx.Request.Context(), id); err != nil {
		h.logger.Error("reject run", "run_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.Status(http.StatusNoContent)
}
