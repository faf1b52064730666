package tracing

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/tracekit/internal/infrastructure/logging"
)

// Header names for incoming trace continuation. The unprefixed W3C name is
// checked first, the prefixed legacy name second.
const (
	TraceparentHeader       = "Traceparent"
	TraceparentHeaderLegacy = "X-Traceparent"
	TracestateHeader        = "Tracestate"
)

// TraceContext carries the parsed distributed-trace continuation data for a
// single incoming request. It is consumed once by StartTransaction and then
// discarded.
type TraceContext struct {
	TraceID    string
	ParentID   string
	Sampled    bool
	TraceState string
}

// ParseTraceparent parses a traceparent header value:
//
//	version "-" trace-id "-" parent-id "-" flags
//	00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01
//
// The tracestate value is stored opaquely and never interpreted.
func ParseTraceparent(header, state string) (*TraceContext, error) {
	parts := strings.Split(header, "-")
	if len(parts) != 4 {
		return nil, fmt.Errorf("expected 4 segments, got %d", len(parts))
	}

	version, traceID, parentID, flags := parts[0], parts[1], parts[2], parts[3]

	if !isLowerHex(version, 2) || version == "ff" {
		return nil, fmt.Errorf("invalid version %q", version)
	}
	if !isLowerHex(traceID, 32) || allZero(traceID) {
		return nil, fmt.Errorf("invalid trace id %q", traceID)
	}
	if !isLowerHex(parentID, 16) || allZero(parentID) {
		return nil, fmt.Errorf("invalid parent id %q", parentID)
	}
	if !isLowerHex(flags, 2) {
		return nil, fmt.Errorf("invalid flags %q", flags)
	}
	flagBits, err := strconv.ParseUint(flags, 16, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid flags %q", flags)
	}

	return &TraceContext{
		TraceID:    traceID,
		ParentID:   parentID,
		Sampled:    flagBits&1 == 1,
		TraceState: state,
	}, nil
}

// ExtractTraceContext reads the trace continuation headers from an incoming
// request. It returns nil when no header is present or the value is
// malformed; the caller starts a fresh trace in both cases.
func ExtractTraceContext(h http.Header, logger *logging.Logger) *TraceContext {
	value := h.Get(TraceparentHeader)
	if value == "" {
		value = h.Get(TraceparentHeaderLegacy)
	}
	if value == "" {
		return nil
	}

	tc, err := ParseTraceparent(value, h.Get(TracestateHeader))
	if err != nil {
		logger.Debug("discarding invalid traceparent header",
			zap.String("header", value),
			zap.Error(err),
		)
		return nil
	}
	return tc
}

func isLowerHex(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func allZero(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' {
			return false
		}
	}
	return true
}
