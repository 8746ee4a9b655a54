package model

import "time"

// AuditAction identifies what was done (or attempted) to a resource. Denied
// variants are distinct so an investigator can tell attempted-and-blocked
// apart from executed actions.
type AuditAction string

const (
	AuditView         AuditAction = "VIEW"
	AuditCreate       AuditAction = "CREATE"
	AuditUpdate       AuditAction = "UPDATE"
	AuditDelete       AuditAction = "DELETE"
	AuditViewDenied   AuditAction = "VIEW_DENIED"
	AuditDeleteDenied AuditAction = "DELETE_DENIED"
	// AuditUploadRejected records infected uploads so operators keep the
	// signature detail that is withheld from the client response.
	AuditUploadRejected AuditAction = "UPLOAD_REJECTED"
)

// AuditRecord is one append-only entry in the audit trail. Records are never
// mutated or deleted by this subsystem once written.
type AuditRecord struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id"`
	Action       AuditAction    `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	IPAddress    string         `json:"ip_address,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
