package tracing

import (
	"time"

	"github.com/GriffinCanCode/tracekit/internal/infrastructure/config"
	"github.com/GriffinCanCode/tracekit/internal/shared/id"
)

// TypeRequest is the transaction type for handled inbound requests.
const TypeRequest = "request"

// Transaction is the top-level tracing span representing one handled
// request. It is owned exclusively by the request that created it: no
// synchronization is needed between creation and End.
type Transaction struct {
	ID       id.TransactionID
	TraceID  string
	SpanID   string
	ParentID string
	// TraceState is the opaque vendor trace-state passed through unchanged.
	TraceState string

	Name    string
	Type    string
	Result  string
	Outcome Outcome

	// Sampled never changes after creation. All enrichment is gated on it.
	Sampled bool

	StartTime time.Time
	Duration  time.Duration

	Context *Context
	Errors  []error

	cfg       config.AgentConfig
	nameFixed bool
	ended     bool
}

// Config returns the configuration snapshot captured when the transaction
// started.
func (tx *Transaction) Config() config.AgentConfig {
	return tx.cfg
}

// SetName names the transaction explicitly. A name set through here is
// final: finalization will not derive a route-based name over it.
func (tx *Transaction) SetName(name string) {
	if tx.ended {
		return
	}
	tx.Name = name
	tx.nameFixed = true
}

// NameFixed reports whether application code named the transaction.
func (tx *Transaction) NameFixed() bool {
	return tx.nameFixed
}

// setDerivedName applies an automatically derived name without fixing it.
func (tx *Transaction) setDerivedName(name string) {
	if tx.ended || tx.nameFixed {
		return
	}
	tx.Name = name
}

// EnsureContext returns the enrichment context, creating it on first use.
func (tx *Transaction) EnsureContext() *Context {
	if tx.Context == nil {
		tx.Context = &Context{}
	}
	return tx.Context
}

// CaptureError records an error raised while handling the request.
func (tx *Transaction) CaptureError(err error) {
	if err == nil || tx.ended {
		return
	}
	tx.Errors = append(tx.Errors, err)
}

// End fixes the transaction's duration and makes it immutable. Ending twice
// is not supported; the second call is a no-op.
func (tx *Transaction) End() {
	if tx.ended {
		return
	}
	tx.Duration = time.Since(tx.StartTime)
	tx.ended = true
}

// Ended reports whether End has run.
func (tx *Transaction) Ended() bool {
	return tx.ended
}
