package repository

import (
	"context"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
)

type RotationRepository interface {
	GetWeekly(ctx context.Context, weekday int, rotationType domain.RotationType) (*domain.DailyRotation, error)
	SetWeekly(ctx context.Context, weekday int, rotationType domain.RotationType, employeeID string) error
	SetAllWeekly(ctx context.Context, entries []domain.DailyRotation) error

	// ListWeekly returns every (weekday, rotation_type) entry, populated
	// or not, for the `GET rotations` consumer endpoint (spec §6).
	ListWeekly(ctx context.Context) ([]domain.DailyRotation, error)

	GetException(ctx context.Context, date string, rotationType domain.RotationType) (*domain.ScheduleException, error)
	AddException(ctx context.Context, e domain.ScheduleException) (*domain.ScheduleException, error)
	DeleteException(ctx context.Context, id string) error

	ListActiveLeads(ctx context.Context) ([]*domain.Employee, error)
}
