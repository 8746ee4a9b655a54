// Package audit appends tamper-evident records of sensitive access and
// mutation decisions. The recorder is the sole writer of the audit trail.
package audit

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"attachapi/internal/model"
	"attachapi/internal/repository"
)

// Entry is what callers supply; ids and timestamps are assigned here.
type Entry struct {
	ActorID      string
	Action       model.AuditAction
	ResourceType string
	ResourceID   string
	IPAddress    string
	Metadata     map[string]any
}

// Recorder writes audit records without ever failing the operation being
// audited: a failed write is escalated (alert-severity log plus a metric an
// operator can page on) instead of propagating.
type Recorder struct {
	repo     repository.AuditRepository
	failures prometheus.Counter
	enc      *json.Encoder
}

// NewRecorder builds a Recorder and registers its failure counter.
func NewRecorder(repo repository.AuditRepository, reg prometheus.Registerer) (*Recorder, error) {
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Total number of audit records that could not be persisted.",
	})
	if err := reg.Register(failures); err != nil {
		return nil, err
	}
	return &Recorder{
		repo:     repo,
		failures: failures,
		enc:      json.NewEncoder(os.Stdout),
	}, nil
}

// Record appends one audit record. It never returns an error.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	rec := &model.AuditRecord{
		ID:           uuid.NewString(),
		ActorID:      e.ActorID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		IPAddress:    e.IPAddress,
		Metadata:     e.Metadata,
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := r.repo.Insert(ctx, rec); err != nil {
		r.failures.Inc()
		r.escalate(rec, err)
	}
}

// escalate surfaces a lost audit record at alert severity. Repeated failures
// are an operational incident, not a functional error.
func (r *Recorder) escalate(rec *model.AuditRecord, err error) {
	entry := map[string]any{
		"ts":            time.Now().UTC().Format(time.RFC3339Nano),
		"level":         "alert",
		"msg":           "audit_write_failed",
		"audit_id":      rec.ID,
		"actor_id":      rec.ActorID,
		"action":        string(rec.Action),
		"resource_type": rec.ResourceType,
		"resource_id":   rec.ResourceID,
		"error":         err.Error(),
	}
	if encErr := r.enc.Encode(entry); encErr != nil {
		log.Printf("failed to log audit escalation: %v (original: %v)", encErr, err)
	}
}
