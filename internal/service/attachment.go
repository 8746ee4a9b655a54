// Package service implements the attachment ingestion and access pipeline:
// classification, scanning, hashing, persistence and mediated access with
// audit logging.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"attachapi/internal/access"
	"attachapi/internal/audit"
	"attachapi/internal/hash"
	"attachapi/internal/mimetype"
	"attachapi/internal/model"
	"attachapi/internal/repository"
	"attachapi/internal/scanner"
)

// Every error leaving this package is one of these sentinels (possibly
// wrapped with detail). Nothing else crosses the operation boundary.
var (
	ErrIDRequired      = errors.New("id is required")
	ErrReaderNil       = errors.New("reader is nil")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTypeMismatch    = errors.New("declared content type does not match detected content")
	ErrFileTooLarge    = errors.New("file exceeds the maximum allowed size")
	ErrDuplicate       = errors.New("identical file content already uploaded")
	ErrInfected        = errors.New("file rejected by malware scan")
	ErrScanUnavailable = errors.New("malware scanning unavailable")
	ErrIntegrity       = errors.New("attachment failed integrity verification")
	ErrNotFound        = errors.New("attachment not found")
	ErrAlreadyDeleted  = errors.New("attachment already deleted")
	ErrForbidden       = errors.New("operation not permitted")
	ErrOtpRequired     = errors.New("one-time code required")
	ErrOtpInvalid      = errors.New("one-time code rejected")
)

const resourceType = "attachment"

// ActorContext carries the authenticated principal plus per-request facts the
// audit trail wants. The OTP code is threaded explicitly through operation
// parameters, never attached here as a side channel.
type ActorContext struct {
	Principal model.Principal
	IP        string
}

// UploadInput is the caller-supplied description of an upload. DeclaredMime
// and Filename are advisory; size is measured, never trusted.
type UploadInput struct {
	Filename     string
	DeclaredMime string
	Reader       io.Reader
}

// AttachmentListResult is the service-level DTO for paginated attachment metadata.
type AttachmentListResult struct {
	Items []model.Attachment `json:"data"`
	Total int                `json:"total"`
}

// AuditListResult is the service-level DTO for paginated audit records.
type AuditListResult struct {
	Items []model.AuditRecord `json:"data"`
	Total int                 `json:"total"`
}

// Auditor records audit entries; satisfied by audit.Recorder.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

// ScopeResolver supplies the business scope (department) of a resource owner.
// It is an external collaborator; NoScope is used when none is wired.
type ScopeResolver interface {
	DepartmentOf(ctx context.Context, userID string) (string, error)
}

// NoScope resolves every owner to an empty department, disabling
// department-scoped reads.
type NoScope struct{}

func (NoScope) DepartmentOf(context.Context, string) (string, error) { return "", nil }

// AttachmentService defines the use cases for handling attachments.
type AttachmentService interface {
	// Upload classifies, scans, hashes and persists a file, then records a
	// CREATE audit entry. Rejections surface as sentinel errors and persist
	// nothing.
	Upload(ctx context.Context, actor ActorContext, in UploadInput) (*model.Attachment, error)

	// Get returns attachment metadata after authorization.
	Get(ctx context.Context, actor ActorContext, id string) (*model.Attachment, error)

	// Download returns the attachment including payload after authorization,
	// recording VIEW or VIEW_DENIED.
	Download(ctx context.Context, actor ActorContext, id string) (*model.Attachment, error)

	// Delete soft-deletes an attachment after the step-up gate and
	// authorization, recording DELETE or DELETE_DENIED. Repeated deletes
	// report ErrAlreadyDeleted without a second audit entry.
	Delete(ctx context.Context, actor ActorContext, id, otpCode string) error

	// List returns attachment metadata visible to the actor (never payloads).
	List(ctx context.Context, actor ActorContext, ownerID string, limit, offset int) (*AttachmentListResult, error)

	// AuditLogs returns audit records; elevated role only.
	AuditLogs(ctx context.Context, actor ActorContext, f repository.AuditFilter, limit, offset int) (*AuditListResult, error)
}

// Options carries ingestion policy knobs.
type Options struct {
	MaxSizeBytes int64
	StrictDedup  bool
	StagingDir   string
}

type attachmentService struct {
	repo      repository.AttachmentRepository
	auditRepo repository.AuditRepository
	auditor   Auditor
	scanner   scanner.Scanner
	policy    *access.Policy
	gate      *access.Gate
	otp       access.OtpVerifier
	mime      *mimetype.Policy
	scope     ScopeResolver
	opts      Options
}

// NewAttachmentService constructs the pipeline service. scope may be nil.
func NewAttachmentService(
	repo repository.AttachmentRepository,
	auditRepo repository.AuditRepository,
	auditor Auditor,
	scan scanner.Scanner,
	policy *access.Policy,
	gate *access.Gate,
	otp access.OtpVerifier,
	mime *mimetype.Policy,
	scope ScopeResolver,
	opts Options,
) AttachmentService {
	if scope == nil {
		scope = NoScope{}
	}
	return &attachmentService{
		repo:      repo,
		auditRepo: auditRepo,
		auditor:   auditor,
		scanner:   scan,
		policy:    policy,
		gate:      gate,
		otp:       otp,
		mime:      mime,
		scope:     scope,
		opts:      opts,
	}
}

func (s *attachmentService) Upload(ctx context.Context, actor ActorContext, in UploadInput) (*model.Attachment, error) {
	if in.Reader == nil {
		return nil, ErrReaderNil
	}

	// One pass over the stream: buffer the payload while measuring size and
	// digest. The declared size is never consulted.
	hw := hash.NewWriter()
	payload := make([]byte, 0, 64*1024)
	buf := make([]byte, 32*1024)
	for {
		n, err := in.Reader.Read(buf)
		if n > 0 {
			if hw.Size()+int64(n) > s.opts.MaxSizeBytes {
				return nil, ErrFileTooLarge
			}
			payload = append(payload, buf[:n]...)
			hw.Write(buf[:n]) //nolint:errcheck // never fails
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
	}

	// Classify by content before anything expensive happens.
	prefix := payload
	if len(prefix) > mimetype.SniffLen {
		prefix = prefix[:mimetype.SniffLen]
	}
	detected := mimetype.Detect(prefix)
	if err := s.mime.Check(detected, in.DeclaredMime); err != nil {
		switch {
		case errors.Is(err, mimetype.ErrTypeMismatch):
			return nil, fmt.Errorf("%w: declared %q, detected %q", ErrTypeMismatch, in.DeclaredMime, detected)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, detected)
		}
	}

	// Stage and scan. The staged file is released on every exit path.
	path, cleanup, err := scanner.StageFile(s.opts.StagingDir, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScanUnavailable, err)
	}
	defer cleanup()

	dec, err := s.scanner.Scan(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScanUnavailable, err)
	}
	switch dec.Status {
	case scanner.StatusInfected:
		// The generic rejection reaches the client; the signature detail is
		// for operators only, via the audit trail.
		s.auditor.Record(ctx, audit.Entry{
			ActorID:      actor.Principal.ID,
			Action:       model.AuditUploadRejected,
			ResourceType: resourceType,
			IPAddress:    actor.IP,
			Metadata: map[string]any{
				"filename":  in.Filename,
				"signature": dec.Signature,
				"digest":    hw.Digest(),
			},
		})
		return nil, ErrInfected
	case scanner.StatusError:
		return nil, fmt.Errorf("%w: %s", ErrScanUnavailable, dec.Reason)
	}

	digest := hw.Digest()

	// Duplicate content detection is advisory unless strict dedup is on.
	existing, err := s.repo.FindByDigest(ctx, digest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("digest lookup: %w", err)
	}
	if existing != nil && s.opts.StrictDedup {
		return nil, fmt.Errorf("%w: attachment %s", ErrDuplicate, existing.ID)
	}

	att := &model.Attachment{
		ID:            uuid.NewString(),
		OwnerID:       actor.Principal.ID,
		OriginalName:  in.Filename,
		DeclaredMime:  in.DeclaredMime,
		DetectedMime:  detected,
		SizeBytes:     hw.Size(),
		ContentDigest: digest,
		Payload:       payload,
		ScanStatus:    model.ScanClean,
		CreatedAt:     time.Now().UTC(),
	}

	stored, err := s.repo.Create(ctx, att)
	if err != nil {
		if errors.Is(err, repository.ErrIntegrity) {
			return nil, ErrIntegrity
		}
		return nil, fmt.Errorf("persist attachment: %w", err)
	}

	meta := map[string]any{
		"filename":      in.Filename,
		"detected_mime": detected,
		"size_bytes":    stored.SizeBytes,
		"digest":        digest,
	}
	if existing != nil {
		meta["duplicate_of"] = existing.ID
	}
	s.auditor.Record(ctx, audit.Entry{
		ActorID:      actor.Principal.ID,
		Action:       model.AuditCreate,
		ResourceType: resourceType,
		ResourceID:   stored.ID,
		IPAddress:    actor.IP,
		Metadata:     meta,
	})

	return stored, nil
}

func (s *attachmentService) Get(ctx context.Context, actor ActorContext, id string) (*model.Attachment, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	att, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.authorizeRead(ctx, actor, att); err != nil {
		return nil, err
	}
	return att, nil
}

func (s *attachmentService) Download(ctx context.Context, actor ActorContext, id string) (*model.Attachment, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	att, err := s.repo.FindWithPayload(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.authorizeRead(ctx, actor, att); err != nil {
		return nil, err
	}

	if !att.Servable() {
		// Rows with a non-clean status should never exist via this pipeline;
		// if one does, refuse to serve it.
		return nil, fmt.Errorf("%w: content has not passed scanning", ErrForbidden)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:      actor.Principal.ID,
		Action:       model.AuditView,
		ResourceType: resourceType,
		ResourceID:   att.ID,
		IPAddress:    actor.IP,
		Metadata:     map[string]any{"filename": att.OriginalName},
	})
	return att, nil
}

func (s *attachmentService) Delete(ctx context.Context, actor ActorContext, id, otpCode string) error {
	if id == "" {
		return ErrIDRequired
	}

	// The step-up gate runs before anything else; a request without a code
	// never reaches the mediator and leaves no audit trace.
	if s.gate.Required(access.OpDelete) {
		if otpCode == "" {
			return ErrOtpRequired
		}
		if err := s.otp.Verify(ctx, actor.Principal.ID, otpCode); err != nil {
			return fmt.Errorf("%w: %v", ErrOtpInvalid, err)
		}
	}

	att, err := s.repo.FindAny(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	dept, _ := s.scope.DepartmentOf(ctx, att.OwnerID)
	decision := s.policy.Decide(actor.Principal, access.OpDelete, access.Resource{
		OwnerID:    att.OwnerID,
		Department: dept,
	})
	if !decision.Allow {
		s.auditor.Record(ctx, audit.Entry{
			ActorID:      actor.Principal.ID,
			Action:       model.AuditDeleteDenied,
			ResourceType: resourceType,
			ResourceID:   att.ID,
			IPAddress:    actor.IP,
			Metadata:     map[string]any{"reason": decision.Reason},
		})
		if !s.policy.CanReadClass(actor.Principal) {
			// No claim on the resource class at all: do not confirm the
			// resource exists.
			return ErrNotFound
		}
		return fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
	}

	if att.IsDeleted {
		// Informing the caller the resource was already gone keeps delete
		// retryable; no second DELETE entry is audited.
		return ErrAlreadyDeleted
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyDeleted):
			// Lost the race with a concurrent delete.
			return ErrAlreadyDeleted
		case errors.Is(err, sql.ErrNoRows):
			return ErrNotFound
		}
		return err
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:      actor.Principal.ID,
		Action:       model.AuditDelete,
		ResourceType: resourceType,
		ResourceID:   att.ID,
		IPAddress:    actor.IP,
		Metadata:     map[string]any{"filename": att.OriginalName},
	})
	return nil
}

func (s *attachmentService) List(ctx context.Context, actor ActorContext, ownerID string, limit, offset int) (*AttachmentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	// Roles without read-any access only ever see their own uploads,
	// whatever filter they asked for.
	filter := repository.AttachmentFilter{OwnerID: ownerID}
	if !s.policy.CanReadAny(actor.Principal) {
		filter.OwnerID = actor.Principal.ID
	}

	res, err := s.repo.List(ctx, filter, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &AttachmentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *attachmentService) AuditLogs(ctx context.Context, actor ActorContext, f repository.AuditFilter, limit, offset int) (*AuditListResult, error) {
	if actor.Principal.Role != model.RoleSuperAdmin {
		return nil, fmt.Errorf("%w: audit trail is restricted", ErrForbidden)
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.auditRepo.List(ctx, f, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &AuditListResult{Items: res.Items, Total: res.Total}, nil
}

// authorizeRead applies the read policy and audits denials. Actors with no
// claim on the class get a not-found shaped error instead of a denial.
func (s *attachmentService) authorizeRead(ctx context.Context, actor ActorContext, att *model.Attachment) error {
	dept, _ := s.scope.DepartmentOf(ctx, att.OwnerID)
	decision := s.policy.Decide(actor.Principal, access.OpRead, access.Resource{
		OwnerID:    att.OwnerID,
		Department: dept,
	})
	if decision.Allow {
		return nil
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:      actor.Principal.ID,
		Action:       model.AuditViewDenied,
		ResourceType: resourceType,
		ResourceID:   att.ID,
		IPAddress:    actor.IP,
		Metadata:     map[string]any{"reason": decision.Reason},
	})
	if !s.policy.CanReadClass(actor.Principal) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s", ErrForbidden, decision.Reason)
}
