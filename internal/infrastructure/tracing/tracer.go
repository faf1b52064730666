package tracing

import (
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/tracekit/internal/infrastructure/config"
	"github.com/GriffinCanCode/tracekit/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tracekit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tracekit/internal/shared/id"
)

// Sampler decides whether a fresh trace records detailed context.
// Continued traces always keep the incoming sampling decision.
type Sampler interface {
	Sample() bool
}

// RatioSampler samples a fixed ratio of fresh traces.
type RatioSampler struct {
	rate float64
}

// NewRatioSampler creates a sampler from a [0,1] ratio.
func NewRatioSampler(rate float64) *RatioSampler {
	return &RatioSampler{rate: rate}
}

// Sample reports whether the next fresh trace should be sampled.
func (s *RatioSampler) Sample() bool {
	if s.rate >= 1 {
		return true
	}
	if s.rate <= 0 {
		return false
	}
	return rand.Float64() < s.rate
}

// Processor consumes ended transactions, e.g. to ship them to a collector.
// Process runs on the tracer's collector goroutine.
type Processor interface {
	Process(tx *Transaction)
}

// Tracer owns transaction creation and collection of ended transactions.
type Tracer struct {
	cfg     config.AgentConfig
	logger  *logging.Logger
	sampler Sampler
	metrics *monitoring.Metrics
	procs   []Processor

	ended chan *Transaction
	done  sync.WaitGroup
}

// TracerOption customizes a Tracer.
type TracerOption func(*Tracer)

// WithSampler overrides the default ratio sampler.
func WithSampler(s Sampler) TracerOption {
	return func(t *Tracer) { t.sampler = s }
}

// WithMetrics wires transaction metrics into the tracer.
func WithMetrics(m *monitoring.Metrics) TracerOption {
	return func(t *Tracer) { t.metrics = m }
}

// WithProcessor registers a processor for ended transactions.
func WithProcessor(p Processor) TracerOption {
	return func(t *Tracer) { t.procs = append(t.procs, p) }
}

// New creates a tracer and starts its collector goroutine.
func New(cfg config.AgentConfig, logger *logging.Logger, opts ...TracerOption) *Tracer {
	t := &Tracer{
		cfg:    cfg,
		logger: logger,
		ended:  make(chan *Transaction, 1000),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.sampler == nil {
		t.sampler = NewRatioSampler(cfg.SampleRate)
	}

	t.done.Add(1)
	go t.collect()

	return t
}

// StartTransaction creates a transaction of the given type. When tc carries
// a valid incoming trace context the transaction continues that trace and
// inherits its sampling decision; otherwise a fresh trace id is generated
// and the sampler decides.
func (t *Tracer) StartTransaction(name, txType string, tc *TraceContext) *Transaction {
	tx := &Transaction{
		ID:        id.NewTransactionID(),
		SpanID:    id.NewSpanID(),
		Name:      name,
		Type:      txType,
		StartTime: time.Now(),
		cfg:       t.cfg,
	}
	if tc != nil {
		tx.TraceID = tc.TraceID
		tx.ParentID = tc.ParentID
		tx.Sampled = tc.Sampled
		tx.TraceState = tc.TraceState
	} else {
		tx.TraceID = id.NewTraceID()
		tx.Sampled = t.sampler.Sample()
	}

	if t.metrics != nil {
		t.metrics.TransactionsStarted.Inc()
	}
	return tx
}

// Submit hands an ended transaction to the collector. Transactions are
// dropped with a warning when the buffer is full: reporting must never
// block request handling.
func (t *Tracer) Submit(tx *Transaction) {
	if tx == nil || !tx.Ended() {
		return
	}
	select {
	case t.ended <- tx:
	default:
		if t.metrics != nil {
			t.metrics.TransactionsDropped.Inc()
		}
		t.logger.Warn("transaction buffer full, dropping transaction",
			zap.String("transaction_id", tx.ID.String()),
			zap.String("trace_id", tx.TraceID),
		)
	}
}

// Close drains and stops the collector. No Submit may run after Close.
func (t *Tracer) Close() {
	close(t.ended)
	t.done.Wait()
}

func (t *Tracer) collect() {
	defer t.done.Done()
	for tx := range t.ended {
		t.process(tx)
	}
}

func (t *Tracer) process(tx *Transaction) {
	if t.metrics != nil {
		t.metrics.RecordTransactionEnd(tx.Type, string(tx.Outcome), tx.Duration)
	}

	fields := []zap.Field{
		zap.String("transaction_id", tx.ID.String()),
		zap.String("trace_id", tx.TraceID),
		zap.String("name", tx.Name),
		zap.String("type", tx.Type),
		zap.String("result", tx.Result),
		zap.String("outcome", string(tx.Outcome)),
		zap.Duration("duration", tx.Duration),
		zap.Bool("sampled", tx.Sampled),
	}
	if tx.ParentID != "" {
		fields = append(fields, zap.String("parent_id", tx.ParentID))
	}

	if len(tx.Errors) > 0 {
		fields = append(fields, zap.Errors("errors", tx.Errors))
		t.logger.Error("transaction completed with errors", fields...)
	} else {
		t.logger.Debug("transaction completed", fields...)
	}

	for _, p := range t.procs {
		p.Process(tx)
	}
}

// ignored counts a request skipped by an ignore pattern.
func (t *Tracer) ignored() {
	if t.metrics != nil {
		t.metrics.TransactionsIgnored.Inc()
	}
}
