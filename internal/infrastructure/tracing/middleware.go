package tracing

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tracekit/internal/infrastructure/logging"
)

// RouteDataFunc supplies the matched route's key/value parameters for
// transaction naming, or nil when the route is unknown.
type RouteDataFunc func(c *gin.Context) []RouteParam

// PrincipalFunc supplies the authenticated principal for user enrichment,
// or nil when the request carries no identity.
type PrincipalFunc func(c *gin.Context) *Principal

type options struct {
	routeData RouteDataFunc
	principal PrincipalFunc
	body      BodyCapturer
}

// Option customizes the HTTP middleware.
type Option func(*options)

// WithRouteData overrides the default route metadata provider.
func WithRouteData(fn RouteDataFunc) Option {
	return func(o *options) { o.routeData = fn }
}

// WithPrincipal installs an authenticated-principal provider.
func WithPrincipal(fn PrincipalFunc) Option {
	return func(o *options) { o.principal = fn }
}

// WithBodyCapturer overrides the default body capturer.
func WithBodyCapturer(b BodyCapturer) Option {
	return func(o *options) { o.body = b }
}

const transactionKey = "tracekit.transaction"

// TransactionFromContext returns the transaction for the current request,
// or nil when the request is not instrumented.
func TransactionFromContext(c *gin.Context) *Transaction {
	if v, ok := c.Get(transactionKey); ok {
		if tx, ok := v.(*Transaction); ok {
			return tx
		}
	}
	return nil
}

// HTTPMiddleware creates Gin middleware that wraps every request in a
// transaction: trace continuation, sampling-gated enrichment, naming,
// outcome classification and guaranteed End. Instrumentation is fail-open;
// a failure in any step never alters the wrapped handler's behavior.
func HTTPMiddleware(t *Tracer, opts ...Option) gin.HandlerFunc {
	o := &options{
		routeData: ginRouteData,
		body:      NewBodyCapturer(t.logger),
	}
	for _, opt := range opts {
		opt(o)
	}

	ignore := t.cfg.TransactionIgnoreUrls

	return func(c *gin.Context) {
		if matchesAny(ignore, c.Request.URL.Path) {
			t.ignored()
			c.Next()
			return
		}

		var tx *Transaction
		capture(t.logger, nil, "start transaction", func() {
			tc := ExtractTraceContext(c.Request.Header, t.logger)
			tx = t.StartTransaction("", TypeRequest, tc)
		})
		if tx == nil {
			// Degrade to pass-through: the request must be handled either way.
			c.Next()
			return
		}
		c.Set(transactionKey, tx)

		if tx.Sampled {
			capture(t.logger, tx, "request enrichment", func() {
				fillRequest(tx, c.Request)
				o.body.CollectRequestBody(false, c.Request, tx)
			})
		}

		defer func() {
			if rec := recover(); rec != nil {
				capture(t.logger, tx, "error capture", func() {
					tx.CaptureError(panicError(rec))
					o.body.CollectRequestBody(true, c.Request, tx)
				})
				finalize(t, tx, c, o)
				// Re-raise unchanged so the surrounding recovery middleware
				// observes the original panic.
				panic(rec)
			}
		}()

		c.Next()

		if len(c.Errors) > 0 {
			capture(t.logger, tx, "error capture", func() {
				for _, e := range c.Errors {
					tx.CaptureError(e.Err)
				}
				o.body.CollectRequestBody(true, c.Request, tx)
			})
		}

		finalize(t, tx, c, o)
	}
}

// finalize runs the end-of-request sequence. Every step is individually
// isolated; End runs last no matter what came before it.
func finalize(t *Tracer, tx *Transaction, c *gin.Context, o *options) {
	status := c.Writer.Status()

	capture(t.logger, tx, "forced body capture", func() {
		// A downstream error handler may have swallowed the failure, so the
		// error-capture step never ran. The body is still interesting.
		if status >= 400 && bodyMissingOrRedacted(tx, o.body) {
			o.body.CollectRequestBody(true, c.Request, tx)
		}
	})

	capture(t.logger, tx, "transaction naming", func() {
		if !tx.NameFixed() {
			name := RouteName(o.routeData(c))
			if name == "" {
				name = c.FullPath()
			}
			if name == "" {
				name = "unknown route"
			}
			tx.setDerivedName(c.Request.Method + " " + name)
		}
	})

	capture(t.logger, tx, "classification", func() {
		tx.Result = ResultForStatus(NormalizeProtocol(c.Request.Proto), status)
		tx.Outcome = OutcomeForStatus(status)
		if len(tx.Errors) > 0 {
			// A captured handler error outranks whatever status the writer
			// reports; panics surface here before the recovery middleware
			// rewrites the response.
			tx.Outcome = OutcomeFailure
		}
	})

	if tx.Sampled {
		capture(t.logger, tx, "response enrichment", func() {
			fillResponse(tx, status, c.Writer.Written(), c.Writer.Header())
		})
		capture(t.logger, tx, "user enrichment", func() {
			if o.principal != nil {
				fillUser(tx, o.principal(c))
			}
		})
	}

	tx.End()
	t.Submit(tx)
}

func bodyMissingOrRedacted(tx *Transaction, b BodyCapturer) bool {
	if tx.Context == nil || tx.Context.Request == nil {
		return true
	}
	body := tx.Context.Request.Body
	return body == "" || body == b.Redacted()
}

// capture isolates one instrumentation step: a panic inside fn is logged
// and swallowed so later steps still run.
func capture(logger *logging.Logger, tx *Transaction, step string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			fields := []zap.Field{
				zap.String("step", step),
				zap.Any("panic", rec),
			}
			if tx != nil {
				fields = append(fields, zap.String("transaction_id", tx.ID.String()))
			}
			logger.Error("instrumentation step failed", fields...)
		}
	}()
	fn()
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}

// ginRouteData adapts gin's matched path parameters as route metadata.
func ginRouteData(c *gin.Context) []RouteParam {
	if len(c.Params) == 0 {
		return nil
	}
	out := make([]RouteParam, 0, len(c.Params))
	for _, p := range c.Params {
		out = append(out, RouteParam{Key: p.Key, Value: p.Value})
	}
	return out
}
