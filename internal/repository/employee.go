package repository

import (
	"context"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
)

type EmployeeRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
	ListActive(ctx context.Context) ([]*domain.Employee, error)
	Upsert(ctx context.Context, e *domain.Employee) error

	WeeklyAvailability(ctx context.Context, employeeID string) ([]domain.WeeklyAvailability, error)
	DateAvailability(ctx context.Context, employeeID, date string) (*domain.DateAvailability, error)
	TimeOffOn(ctx context.Context, employeeID, date string) (*domain.TimeOff, error)

	// ExistingSchedulesOn returns every Schedule the employee holds whose
	// date(schedule_datetime) equals date, used by C3's daily-cap and
	// conflict checks.
	ExistingSchedulesOn(ctx context.Context, employeeID, date string) ([]domain.ScheduledEvent, error)
}
