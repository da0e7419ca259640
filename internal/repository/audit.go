package repository

import (
	"context"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
)

type AuditRepository interface {
	Record(ctx context.Context, e domain.AuditEntry) error
}
