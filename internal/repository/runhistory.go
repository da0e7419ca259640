package repository

import (
	"context"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
)

type RunHistoryRepository interface {
	// StartRun atomically creates a new running RunHistory row, or
	// returns domain.ErrRunInProgress if one already exists — the
	// "named lock" spec §4.4/§5 requires, implemented as a partial
	// unique index on state='running'.
	StartRun(ctx context.Context, runType domain.RunType) (*domain.RunHistory, error)
	Finish(ctx context.Context, runID string, state domain.RunState, counters domain.RunHistory, errMsg *string) error

	GetByID(ctx context.Context, id string) (*domain.RunHistory, error)
	List(ctx context.Context, limit int) ([]*domain.RunHistory, error)
}
