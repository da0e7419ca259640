package domain

import "time"

// AuditEntry is one append-only record of a mutation, per spec §6's
// recommended (not required) audit log.
type AuditEntry struct {
	ID        string
	Actor     string
	Action    string
	Before    []byte // JSON snapshot, nil on create
	After     []byte // JSON snapshot, nil on delete
	CreatedAt time.Time
}
