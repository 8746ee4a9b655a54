package scanner

import (
	"context"
	"time"
)

// Retry wraps a Scanner and re-submits on ERROR verdicts. CLEAN and INFECTED
// verdicts return immediately; infected files are never re-scanned. With
// MaxRetries = 2 a file is scanned at most 3 times before the last ERROR
// verdict is returned to the caller, which must then fail closed.
type Retry struct {
	Scanner    Scanner
	MaxRetries int
	Backoff    time.Duration
}

var _ Scanner = (*Retry)(nil)

// Scan runs the wrapped scanner up to 1+MaxRetries times with linear backoff
// between attempts, stopping early when the context is done.
func (r *Retry) Scan(ctx context.Context, path string) (Decision, error) {
	var dec Decision
	var err error

	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Decision{Status: StatusError, Reason: "scan cancelled"}, nil
			case <-time.After(time.Duration(attempt) * r.Backoff):
			}
		}

		dec, err = r.Scanner.Scan(ctx, path)
		if err != nil {
			return Decision{}, err
		}
		if dec.Status != StatusError {
			return dec, nil
		}
	}
	return dec, nil
}
