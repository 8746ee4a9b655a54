package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"attachapi/internal/model"
	"attachapi/internal/repository"
)

// metaColumns are the attachment columns safe to return everywhere; payload
// is deliberately absent and only selected by FindWithPayload.
const metaColumns = `id, owner_id, original_name, declared_mime, detected_mime,
		size_bytes, content_digest, scan_status, is_deleted, created_at`

// AttachmentPostgres is a PostgreSQL implementation of repository.AttachmentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type AttachmentPostgres struct {
	db *sql.DB
}

// NewAttachmentPostgres creates a new AttachmentPostgres repository.
func NewAttachmentPostgres(db *sql.DB) *AttachmentPostgres {
	return &AttachmentPostgres{db: db}
}

var _ repository.AttachmentRepository = (*AttachmentPostgres)(nil)

// Create inserts metadata and payload in one transaction. The size invariant
// is re-checked here so a corrupted value can never reach the table.
func (r *AttachmentPostgres) Create(ctx context.Context, att *model.Attachment) (*model.Attachment, error) {
	if int64(len(att.Payload)) != att.SizeBytes {
		return nil, repository.ErrIntegrity
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const q = `
		INSERT INTO attachments (id, owner_id, original_name, declared_mime, detected_mime,
			size_bytes, content_digest, payload, scan_status, is_deleted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + metaColumns
	row := tx.QueryRowContext(ctx, q,
		att.ID,
		att.OwnerID,
		att.OriginalName,
		att.DeclaredMime,
		att.DetectedMime,
		att.SizeBytes,
		att.ContentDigest,
		att.Payload,
		string(att.ScanStatus),
		att.IsDeleted,
		att.CreatedAt,
	)

	out, err := scanMeta(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// FindByID fetches metadata for a single live attachment.
func (r *AttachmentPostgres) FindByID(ctx context.Context, id string) (*model.Attachment, error) {
	q := `SELECT ` + metaColumns + ` FROM attachments WHERE id = $1 AND is_deleted = FALSE`
	return scanMeta(r.db.QueryRowContext(ctx, q, id))
}

// FindWithPayload fetches a single live attachment including its payload.
func (r *AttachmentPostgres) FindWithPayload(ctx context.Context, id string) (*model.Attachment, error) {
	q := `SELECT ` + metaColumns + `, payload FROM attachments WHERE id = $1 AND is_deleted = FALSE`
	row := r.db.QueryRowContext(ctx, q, id)

	var a model.Attachment
	var status string
	if err := row.Scan(
		&a.ID, &a.OwnerID, &a.OriginalName, &a.DeclaredMime, &a.DetectedMime,
		&a.SizeBytes, &a.ContentDigest, &status, &a.IsDeleted, &a.CreatedAt,
		&a.Payload,
	); err != nil {
		return nil, err
	}
	a.ScanStatus = model.ScanStatus(status)
	return &a, nil
}

// FindAny fetches metadata by id regardless of the soft-delete flag.
func (r *AttachmentPostgres) FindAny(ctx context.Context, id string) (*model.Attachment, error) {
	q := `SELECT ` + metaColumns + ` FROM attachments WHERE id = $1`
	return scanMeta(r.db.QueryRowContext(ctx, q, id))
}

// FindByDigest fetches metadata for the newest live attachment with the digest.
func (r *AttachmentPostgres) FindByDigest(ctx context.Context, digest string) (*model.Attachment, error) {
	q := `SELECT ` + metaColumns + ` FROM attachments
		WHERE content_digest = $1 AND is_deleted = FALSE
		ORDER BY created_at DESC LIMIT 1`
	return scanMeta(r.db.QueryRowContext(ctx, q, digest))
}

// SoftDelete marks a row deleted. The conditional update serializes
// concurrent deletes of the same id inside the database.
func (r *AttachmentPostgres) SoftDelete(ctx context.Context, id string) error {
	const q = `UPDATE attachments SET is_deleted = TRUE WHERE id = $1 AND is_deleted = FALSE`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Nothing updated: distinguish "already deleted" from "never existed".
	var exists bool
	const qExists = `SELECT EXISTS (SELECT 1 FROM attachments WHERE id = $1)`
	if err := r.db.QueryRowContext(ctx, qExists, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return repository.ErrAlreadyDeleted
	}
	return sql.ErrNoRows
}

// List returns metadata pages using LIMIT/OFFSET pagination and a total count.
func (r *AttachmentPostgres) List(ctx context.Context, f repository.AttachmentFilter, pq repository.PageQuery) (*repository.PageResult[model.Attachment], error) {
	where := `WHERE is_deleted = FALSE`
	args := []any{}
	if f.OwnerID != "" {
		where += ` AND owner_id = $1`
		args = append(args, f.OwnerID)
	}

	qCount := `SELECT COUNT(*) FROM attachments ` + where
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, err
	}

	qList := fmt.Sprintf(`SELECT `+metaColumns+` FROM attachments %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, pq.Limit, pq.Offset)

	rows, err := r.db.QueryContext(ctx, qList, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Attachment, 0)
	for rows.Next() {
		var a model.Attachment
		var status string
		if err := rows.Scan(
			&a.ID, &a.OwnerID, &a.OriginalName, &a.DeclaredMime, &a.DetectedMime,
			&a.SizeBytes, &a.ContentDigest, &status, &a.IsDeleted, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		a.ScanStatus = model.ScanStatus(status)
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Attachment]{Items: items, Total: total}, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeta(row rowScanner) (*model.Attachment, error) {
	var a model.Attachment
	var status string
	if err := row.Scan(
		&a.ID, &a.OwnerID, &a.OriginalName, &a.DeclaredMime, &a.DetectedMime,
		&a.SizeBytes, &a.ContentDigest, &status, &a.IsDeleted, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.ScanStatus = model.ScanStatus(status)
	return &a, nil
}
