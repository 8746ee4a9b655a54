package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"attachapi/internal/model"
	"attachapi/internal/repository"
)

// AuditPostgres is a PostgreSQL implementation of repository.AuditRepository.
// It only ever issues INSERT and SELECT statements against audit_logs.
type AuditPostgres struct {
	db *sql.DB
}

// NewAuditPostgres creates a new AuditPostgres repository.
func NewAuditPostgres(db *sql.DB) *AuditPostgres {
	return &AuditPostgres{db: db}
}

var _ repository.AuditRepository = (*AuditPostgres)(nil)

// Insert appends one audit record.
func (r *AuditPostgres) Insert(ctx context.Context, rec *model.AuditRecord) (*model.AuditRecord, error) {
	var meta []byte
	if rec.Metadata != nil {
		var err error
		meta, err = json.Marshal(rec.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	const q = `
		INSERT INTO audit_logs (id, actor_id, action, resource_type, resource_id, ip_address, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, actor_id, action, resource_type, resource_id, ip_address, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		rec.ID,
		rec.ActorID,
		string(rec.Action),
		rec.ResourceType,
		rec.ResourceID,
		rec.IPAddress,
		meta,
		rec.CreatedAt,
	)

	var out model.AuditRecord
	var action string
	if err := row.Scan(
		&out.ID, &out.ActorID, &action, &out.ResourceType, &out.ResourceID,
		&out.IPAddress, &out.CreatedAt,
	); err != nil {
		return nil, err
	}
	out.Action = model.AuditAction(action)
	out.Metadata = rec.Metadata
	return &out, nil
}

// List returns audit records newest first with the usual LIMIT/OFFSET paging.
func (r *AuditPostgres) List(ctx context.Context, f repository.AuditFilter, pq repository.PageQuery) (*repository.PageResult[model.AuditRecord], error) {
	where := `WHERE TRUE`
	args := []any{}
	add := func(clause, val string) {
		args = append(args, val)
		where += fmt.Sprintf(` AND %s = $%d`, clause, len(args))
	}
	if f.ActorID != "" {
		add("actor_id", f.ActorID)
	}
	if f.Action != "" {
		add("action", string(f.Action))
	}
	if f.ResourceType != "" {
		add("resource_type", f.ResourceType)
	}
	if f.ResourceID != "" {
		add("resource_id", f.ResourceID)
	}

	qCount := `SELECT COUNT(*) FROM audit_logs ` + where
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, err
	}

	qList := fmt.Sprintf(`SELECT id, actor_id, action, resource_type, resource_id, ip_address, metadata, created_at
		FROM audit_logs %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, pq.Limit, pq.Offset)

	rows, err := r.db.QueryContext(ctx, qList, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.AuditRecord, 0)
	for rows.Next() {
		var rec model.AuditRecord
		var action string
		var meta []byte
		if err := rows.Scan(
			&rec.ID, &rec.ActorID, &action, &rec.ResourceType, &rec.ResourceID,
			&rec.IPAddress, &meta, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Action = model.AuditAction(action)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.AuditRecord]{Items: items, Total: total}, nil
}
