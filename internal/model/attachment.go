package model

import "time"

// ScanStatus is the terminal malware-scan verdict recorded on an attachment.
// Transitions happen exactly once, before persistence: PENDING is only ever an
// in-flight value and never reaches the database through this pipeline.
type ScanStatus string

const (
	ScanPending  ScanStatus = "PENDING"
	ScanClean    ScanStatus = "CLEAN"
	ScanInfected ScanStatus = "INFECTED"
	ScanFailed   ScanStatus = "SCAN_FAILED"
)

// Attachment represents a stored binary file plus its catalog metadata.
// This is a pure domain model with no database-specific dependencies or tags.
//
// Payload is owned exclusively by the attachment store; it is never included
// in list responses and is omitted from JSON serialization entirely; content
// is only served through the explicit download operation.
type Attachment struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	OriginalName  string     `json:"original_name"`
	DeclaredMime  string     `json:"declared_mime"`
	DetectedMime  string     `json:"detected_mime"`
	SizeBytes     int64      `json:"size_bytes"`
	ContentDigest string     `json:"content_digest"`
	Payload       []byte     `json:"-"`
	ScanStatus    ScanStatus `json:"scan_status"`
	IsDeleted     bool       `json:"is_deleted"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Servable reports whether the attachment content may be returned to a
// consumer. Anything other than a clean, live row is unservable.
func (a *Attachment) Servable() bool {
	return a.ScanStatus == ScanClean && !a.IsDeleted
}
