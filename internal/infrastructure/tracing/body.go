package tracing

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tracekit/internal/infrastructure/logging"
)

// BodyCapturer records request bodies onto transactions. Implementations
// must be safe to call more than once per request and must leave the body
// readable for the downstream handler.
type BodyCapturer interface {
	// CollectRequestBody captures the request body according to the
	// transaction's configuration snapshot. forced bypasses the sampling
	// gate (error paths want the body even on unsampled transactions).
	CollectRequestBody(forced bool, r *http.Request, tx *Transaction)

	// Redacted returns the sentinel stored in place of sanitized content.
	Redacted() string
}

// Body capture modes understood by the configuration snapshot.
const (
	CaptureBodyOff    = "off"
	CaptureBodyErrors = "errors"
	CaptureBodyAll    = "all"
)

const redactedMarker = "[REDACTED]"

// BufferedBodyCapturer reads the body into memory and rewinds it so the
// downstream handler can read it again.
type BufferedBodyCapturer struct {
	logger *logging.Logger
}

// NewBodyCapturer creates the default body capturer.
func NewBodyCapturer(logger *logging.Logger) *BufferedBodyCapturer {
	return &BufferedBodyCapturer{logger: logger}
}

// Redacted returns the redaction sentinel.
func (b *BufferedBodyCapturer) Redacted() string {
	return redactedMarker
}

// CollectRequestBody implements BodyCapturer.
func (b *BufferedBodyCapturer) CollectRequestBody(forced bool, r *http.Request, tx *Transaction) {
	if tx == nil || r == nil {
		return
	}

	cfg := tx.Config()
	switch cfg.CaptureBody {
	case CaptureBodyAll:
	case CaptureBodyErrors:
		if !forced {
			return
		}
	default:
		// "off" and unknown modes never capture, forced or not.
		return
	}

	if r.Body == nil || r.Body == http.NoBody {
		return
	}

	limit := cfg.BodyLimit
	if limit <= 0 {
		limit = 2048
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, int64(limit)))
	if err != nil {
		b.logger.Error("failed to read request body",
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(err),
		)
		return
	}
	// Rewind so the handler still sees the complete stream.
	r.Body = rewoundBody{
		Reader: io.MultiReader(bytes.NewReader(buf), r.Body),
		Closer: r.Body,
	}

	if len(buf) == 0 {
		return
	}

	body := string(buf)
	if isFormContent(r.Header.Get("Content-Type")) {
		body = sanitizeForm(body, cfg.SanitizeFieldNames)
	}

	ctx := tx.EnsureContext()
	if ctx.Request == nil {
		ctx.Request = &RequestInfo{Method: r.Method}
	}
	ctx.Request.Body = body
}

type rewoundBody struct {
	io.Reader
	io.Closer
}

func isFormContent(contentType string) bool {
	return strings.HasPrefix(contentType, "application/x-www-form-urlencoded")
}

// sanitizeForm replaces values of sensitive form fields with the redaction
// marker. Unparseable bodies are redacted wholesale rather than leaked.
func sanitizeForm(body string, patterns []string) string {
	values, err := url.ParseQuery(body)
	if err != nil {
		return redactedMarker
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			if matchesAny(patterns, k) {
				v = redactedMarker
			} else {
				v = url.QueryEscape(v)
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(v)
		}
	}
	return sb.String()
}

// matchesAny reports whether name matches any wildcard pattern,
// case-insensitively.
func matchesAny(patterns []string, name string) bool {
	name = strings.ToLower(name)
	for _, p := range patterns {
		if ok, err := doublestar.Match(strings.ToLower(p), name); err == nil && ok {
			return true
		}
	}
	return false
}
