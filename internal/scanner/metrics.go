package scanner

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrumented wraps a Scanner and counts final verdicts by status.
type Instrumented struct {
	scanner  Scanner
	verdicts *prometheus.CounterVec
}

var _ Scanner = (*Instrumented)(nil)

// NewInstrumented registers the verdict counter and wraps s. Wrap the
// outermost scanner (after retry) so only final verdicts are counted.
func NewInstrumented(s Scanner, reg prometheus.Registerer) (*Instrumented, error) {
	verdicts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "malware_scan_verdicts_total",
			Help: "Total number of final malware scan verdicts by status.",
		},
		[]string{"status"},
	)
	if err := reg.Register(verdicts); err != nil {
		return nil, err
	}
	return &Instrumented{scanner: s, verdicts: verdicts}, nil
}

func (i *Instrumented) Scan(ctx context.Context, path string) (Decision, error) {
	dec, err := i.scanner.Scan(ctx, path)
	if err == nil {
		i.verdicts.WithLabelValues(string(dec.Status)).Inc()
	}
	return dec, err
}
