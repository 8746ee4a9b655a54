package repository

import (
	"context"
	"errors"

	"attachapi/internal/model"
)

var (
	// ErrAlreadyDeleted is returned by SoftDelete when the row exists but was
	// already soft-deleted. Delete stays idempotent at the data layer.
	ErrAlreadyDeleted = errors.New("attachment already deleted")

	// ErrIntegrity is returned when the recorded size does not match the
	// actual payload length at persistence time. Nothing is committed.
	ErrIntegrity = errors.New("attachment payload failed integrity check")
)

// AttachmentRepository defines data access for attachments using SQL queries only.
// Soft-deleted rows are invisible to every read path here; they are retained
// purely for the audit trail and physical purge is not this subsystem's job.
type AttachmentRepository interface {
	// Create inserts metadata and payload together in a single transaction;
	// either both persist or neither does. It verifies SizeBytes against the
	// actual payload length before commit and aborts with ErrIntegrity on
	// mismatch. Returns the stored attachment without its payload.
	Create(ctx context.Context, att *model.Attachment) (*model.Attachment, error)

	// FindByID returns attachment metadata (no payload) by ID, excluding
	// soft-deleted rows (sql.ErrNoRows for unknown or deleted ids).
	FindByID(ctx context.Context, id string) (*model.Attachment, error)

	// FindWithPayload is FindByID plus the binary payload, for the explicit
	// single-resource download path only.
	FindWithPayload(ctx context.Context, id string) (*model.Attachment, error)

	// FindAny returns metadata by ID including soft-deleted rows. The delete
	// path needs it so repeated deletes can report AlreadyDeleted instead of
	// pretending the resource never existed.
	FindAny(ctx context.Context, id string) (*model.Attachment, error)

	// FindByDigest returns the newest live attachment with the given content
	// digest, metadata only. Used for advisory duplicate detection.
	FindByDigest(ctx context.Context, digest string) (*model.Attachment, error)

	// SoftDelete marks the row deleted. Concurrent deletes of the same id are
	// serialized by the conditional update: exactly one caller succeeds and
	// the rest get ErrAlreadyDeleted. Unknown ids yield sql.ErrNoRows.
	SoftDelete(ctx context.Context, id string) error

	// List returns a metadata page (payload never included) and a total count.
	List(ctx context.Context, f AttachmentFilter, pq PageQuery) (*PageResult[model.Attachment], error)
}

// AttachmentFilter narrows List results.
type AttachmentFilter struct {
	OwnerID string // empty means all owners
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
