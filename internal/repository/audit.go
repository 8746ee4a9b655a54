package repository

import (
	"context"

	"attachapi/internal/model"
)

// AuditRepository appends to and reads the audit trail. The interface exposes
// no update or delete: records are immutable once written.
type AuditRepository interface {
	// Insert appends one audit record and returns it with DB-assigned fields.
	Insert(ctx context.Context, rec *model.AuditRecord) (*model.AuditRecord, error)

	// List returns audit records newest first, filtered and paginated.
	List(ctx context.Context, f AuditFilter, pq PageQuery) (*PageResult[model.AuditRecord], error)
}

// AuditFilter narrows audit queries; zero values mean "any".
type AuditFilter struct {
	ActorID      string
	Action       model.AuditAction
	ResourceType string
	ResourceID   string
}
