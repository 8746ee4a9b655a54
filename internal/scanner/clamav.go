package scanner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"attachapi/internal/config"
)

// foundRe extracts the threat name from clamscan output, which reports
// infections as "path: ThreatName FOUND".
var foundRe = regexp.MustCompile(`: (.+) FOUND`)

// ClamAV runs the clamscan command-line engine against a staged file.
// It is safe for concurrent use; each Scan spawns an independent process.
type ClamAV struct {
	command string
	timeout time.Duration
}

var _ Scanner = (*ClamAV)(nil)

// NewClamAV builds a ClamAV adapter from scanner configuration.
func NewClamAV(cfg config.ScannerConfig) *ClamAV {
	return &ClamAV{command: cfg.Command, timeout: cfg.Timeout}
}

// Scan invokes clamscan synchronously, bounded by the configured timeout.
// A timed-out or failed invocation yields StatusError, never StatusClean.
func (s *ClamAV) Scan(ctx context.Context, path string) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// --no-summary keeps stdout to per-file verdict lines only.
	cmd := exec.CommandContext(ctx, s.command, "--no-summary", path)
	out, err := cmd.CombinedOutput()
	if err == nil {
		// Exit code 0: no threats found.
		return Decision{Status: StatusClean}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Decision{Status: StatusError, Reason: "scan timed out"}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		// Exit code 1: threat found. Pull the signature if present.
		sig := "unknown"
		if m := foundRe.FindSubmatch(out); m != nil {
			sig = strings.TrimSpace(string(m[1]))
		}
		return Decision{Status: StatusInfected, Signature: sig}, nil
	}

	// Engine missing, database not initialized, unreadable file, etc.
	return Decision{
		Status: StatusError,
		Reason: fmt.Sprintf("clamscan failed: %v: %s", err, firstLine(out)),
	}, nil
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
