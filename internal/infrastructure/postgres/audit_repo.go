package postgres

import (
	"context"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Record(ctx context.Context, e domain.AuditEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (actor, action, before_snapshot, after_snapshot)
		VALUES ($1, $2, $3, $4)`,
		e.Actor, e.Action, e.Before, e.After)
	return err
}
