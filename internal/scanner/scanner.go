// Package scanner coordinates malware scanning of staged upload files with an
// external antivirus engine.
package scanner

import "context"

// Status is the outcome of a single scan attempt.
type Status string

const (
	StatusClean    Status = "CLEAN"
	StatusInfected Status = "INFECTED"
	StatusError    Status = "ERROR"
)

// Decision is the transient scan verdict for one staged file. It is never
// persisted on its own; only the resulting attachment scan status is.
type Decision struct {
	Status    Status
	Signature string // threat name when infected, if the engine reported one
	Reason    string // failure detail when status is ERROR
}

// Scanner submits a staged file to an antivirus engine.
//
// Implementations must treat the engine as untrusted and possibly
// unavailable: a verdict of StatusError (including timeouts) means "could not
// scan", never "safe". Retrying is the caller's concern; INFECTED verdicts
// must not be retried.
type Scanner interface {
	Scan(ctx context.Context, path string) (Decision, error)
}
