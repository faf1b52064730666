package tracing

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tracekit/internal/infrastructure/logging"
)

const (
	validTraceparent = "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"
	validTraceID     = "0af7651916cd43dd8448eb211c80319c"
	validParentID    = "b7ad6b7169203331"
)

func TestParseTraceparent(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    *TraceContext
		wantErr bool
	}{
		{
			name:   "valid sampled",
			header: validTraceparent,
			want:   &TraceContext{TraceID: validTraceID, ParentID: validParentID, Sampled: true},
		},
		{
			name:   "valid unsampled",
			header: "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-00",
			want:   &TraceContext{TraceID: validTraceID, ParentID: validParentID, Sampled: false},
		},
		{
			name:   "sampled bit in multi-bit flags",
			header: "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-0b",
			want:   &TraceContext{TraceID: validTraceID, ParentID: validParentID, Sampled: true},
		},
		{
			name:    "too few segments",
			header:  "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331",
			wantErr: true,
		},
		{
			name:    "version ff reserved",
			header:  "ff-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01",
			wantErr: true,
		},
		{
			name:    "uppercase hex rejected",
			header:  "00-0AF7651916CD43DD8448EB211C80319C-b7ad6b7169203331-01",
			wantErr: true,
		},
		{
			name:    "all-zero trace id",
			header:  "00-00000000000000000000000000000000-b7ad6b7169203331-01",
			wantErr: true,
		},
		{
			name:    "all-zero parent id",
			header:  "00-0af7651916cd43dd8448eb211c80319c-0000000000000000-01",
			wantErr: true,
		},
		{
			name:    "short trace id",
			header:  "00-0af765-b7ad6b7169203331-01",
			wantErr: true,
		},
		{
			name:    "non-hex garbage",
			header:  "00-zzzz651916cd43dd8448eb211c80319c-b7ad6b7169203331-01",
			wantErr: true,
		},
		{
			name:    "empty",
			header:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTraceparent(tt.header, "")

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.TraceID, got.TraceID)
			assert.Equal(t, tt.want.ParentID, got.ParentID)
			assert.Equal(t, tt.want.Sampled, got.Sampled)
		})
	}
}

func TestParseTraceparentKeepsTracestate(t *testing.T) {
	got, err := ParseTraceparent(validTraceparent, "vendor=opaque:value")
	require.NoError(t, err)
	assert.Equal(t, "vendor=opaque:value", got.TraceState)
}

func TestExtractTraceContext(t *testing.T) {
	logger := logging.NewNop()

	t.Run("no headers", func(t *testing.T) {
		assert.Nil(t, ExtractTraceContext(http.Header{}, logger))
	})

	t.Run("primary header", func(t *testing.T) {
		h := http.Header{}
		h.Set(TraceparentHeader, validTraceparent)

		tc := ExtractTraceContext(h, logger)
		require.NotNil(t, tc)
		assert.Equal(t, validTraceID, tc.TraceID)
	})

	t.Run("legacy header fallback", func(t *testing.T) {
		h := http.Header{}
		h.Set(TraceparentHeaderLegacy, validTraceparent)

		tc := ExtractTraceContext(h, logger)
		require.NotNil(t, tc)
		assert.Equal(t, validTraceID, tc.TraceID)
	})

	t.Run("primary wins over legacy", func(t *testing.T) {
		h := http.Header{}
		h.Set(TraceparentHeader, validTraceparent)
		h.Set(TraceparentHeaderLegacy, "00-ffffffffffffffffffffffffffffffff-ffffffffffffffff-00")

		tc := ExtractTraceContext(h, logger)
		require.NotNil(t, tc)
		assert.Equal(t, validTraceID, tc.TraceID)
		assert.True(t, tc.Sampled)
	})

	t.Run("malformed degrades to nil", func(t *testing.T) {
		h := http.Header{}
		h.Set(TraceparentHeader, "not-a-traceparent")

		assert.Nil(t, ExtractTraceContext(h, logger))
	})

	t.Run("tracestate passed through", func(t *testing.T) {
		h := http.Header{}
		h.Set(TraceparentHeader, validTraceparent)
		h.Set(TracestateHeader, "es=s:1,vendor=x")

		tc := ExtractTraceContext(h, logger)
		require.NotNil(t, tc)
		assert.Equal(t, "es=s:1,vendor=x", tc.TraceState)
	})
}
