package reporter

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/tracekit/internal/infrastructure/config"
	"github.com/GriffinCanCode/tracekit/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tracekit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tracekit/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/tracekit/internal/infrastructure/tracing"
)

// intakePath is the collector endpoint transactions are POSTed to.
const intakePath = "/v1/transactions"

// Reporter ships ended transactions to a collector over HTTP. It implements
// tracing.Processor and runs on the tracer's collector goroutine.
type Reporter struct {
	client  *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *logging.Logger
	metrics *monitoring.Metrics
	url     string
}

// New creates a reporter from configuration. The underlying client retries
// transient failures with backoff.
func New(cfg config.ReporterConfig, logger *logging.Logger, metrics *monitoring.Metrics) *Reporter {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = nil // Disable logging

	restyClient := resty.New()
	restyClient.
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "TraceKit-Reporter/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	limit := rate.Limit(cfg.RatePerSecond)
	burst := int(cfg.RatePerSecond) + 1
	if cfg.RatePerSecond <= 0 {
		limit = rate.Inf
		burst = 0
	}

	breaker := resilience.New("collector", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("collector circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Reporter{
		client:  restyClient,
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
		logger:  logger,
		metrics: metrics,
		url:     cfg.ServerURL + intakePath,
	}
}

// transactionPayload is the wire form of one ended transaction.
type transactionPayload struct {
	ID         string           `json:"id"`
	TraceID    string           `json:"trace_id"`
	SpanID     string           `json:"span_id"`
	ParentID   string           `json:"parent_id,omitempty"`
	TraceState string           `json:"trace_state,omitempty"`
	Name       string           `json:"name"`
	Type       string           `json:"type"`
	Result     string           `json:"result,omitempty"`
	Outcome    string           `json:"outcome"`
	Sampled    bool             `json:"sampled"`
	Timestamp  time.Time        `json:"timestamp"`
	DurationMs float64          `json:"duration_ms"`
	Context    *tracing.Context `json:"context,omitempty"`
	Errors     []string         `json:"errors,omitempty"`
}

// Process implements tracing.Processor.
func (r *Reporter) Process(tx *tracing.Transaction) {
	if !r.limiter.Allow() {
		if r.metrics != nil {
			r.metrics.ReportsDropped.Inc()
		}
		r.logger.Warn("reporter rate limit exceeded, dropping transaction",
			zap.String("transaction_id", tx.ID.String()),
		)
		return
	}

	body, err := encodePayload(buildPayload(tx))
	if err != nil {
		r.fail(tx, "failed to encode transaction", err)
		return
	}

	err = r.breaker.Do(func() error { return r.send(body) })
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		if r.metrics != nil {
			r.metrics.ReportsDropped.Inc()
		}
		r.logger.Warn("collector unavailable, dropping transaction",
			zap.String("transaction_id", tx.ID.String()),
		)
	case err != nil:
		r.fail(tx, "failed to deliver transaction", err)
	default:
		if r.metrics != nil {
			r.metrics.ReportsSent.Inc()
		}
	}
}

func (r *Reporter) send(body []byte) error {
	resp, err := r.client.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("Content-Encoding", "gzip").
		SetBody(body).
		Post(r.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("collector rejected transaction: status %d", resp.StatusCode())
	}
	return nil
}

func (r *Reporter) fail(tx *tracing.Transaction, msg string, err error, extra ...zap.Field) {
	if r.metrics != nil {
		r.metrics.ReportErrors.Inc()
	}
	fields := append([]zap.Field{zap.String("transaction_id", tx.ID.String())}, extra...)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	r.logger.Error(msg, fields...)
}

func buildPayload(tx *tracing.Transaction) transactionPayload {
	p := transactionPayload{
		ID:         tx.ID.String(),
		TraceID:    tx.TraceID,
		SpanID:     tx.SpanID,
		ParentID:   tx.ParentID,
		TraceState: tx.TraceState,
		Name:       tx.Name,
		Type:       tx.Type,
		Result:     tx.Result,
		Outcome:    string(tx.Outcome),
		Sampled:    tx.Sampled,
		Timestamp:  tx.StartTime,
		DurationMs: float64(tx.Duration) / float64(time.Millisecond),
	}
	if tx.Sampled {
		p.Context = tx.Context
	}
	for _, e := range tx.Errors {
		p.Errors = append(p.Errors, e.Error())
	}
	return p
}

func encodePayload(p transactionPayload) ([]byte, error) {
	raw, err := sonic.Marshal(p)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
