package access

import "context"

// StepUpTable maps operation names to whether they require step-up
// authentication. The requirement is a capability of the operation, not a
// property of the resource being operated on.
type StepUpTable map[Operation]bool

// DefaultStepUpTable requires a one-time code for deletes only.
func DefaultStepUpTable() StepUpTable {
	return StepUpTable{OpDelete: true}
}

// Gate enforces the presence of a one-time code on operations flagged as
// sensitive. It deliberately does not verify the code: correctness checks
// need the OTP issuance store, which belongs to the authentication subsystem.
type Gate struct {
	table StepUpTable
}

// NewGate builds a gate over an explicit capability table.
func NewGate(table StepUpTable) *Gate {
	return &Gate{table: table}
}

// Required reports whether op needs a one-time code before proceeding.
func (g *Gate) Required(op Operation) bool {
	return g.table[op]
}

// OtpVerifier is the authentication subsystem's correctness check, invoked
// downstream only after the gate has confirmed a code is present.
type OtpVerifier interface {
	Verify(ctx context.Context, userID, code string) error
}

// OtpVerifierFunc adapts a function to the OtpVerifier interface.
type OtpVerifierFunc func(ctx context.Context, userID, code string) error

func (f OtpVerifierFunc) Verify(ctx context.Context, userID, code string) error {
	return f(ctx, userID, code)
}
