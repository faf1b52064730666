package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/GriffinCanCode/tracekit/internal/infrastructure/config"
	"github.com/GriffinCanCode/tracekit/internal/infrastructure/logging"
)

func invokeUnary(t *testing.T, cfg config.AgentConfig, ctx context.Context, method string, handlerErr error) []*Transaction {
	t.Helper()
	rec := &recordingProcessor{}
	tracer := New(cfg, logging.NewNop(), WithProcessor(rec))
	interceptor := GRPCUnaryInterceptor(tracer)

	info := &grpc.UnaryServerInfo{FullMethod: method}
	resp, err := interceptor(ctx, "request", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		if handlerErr != nil {
			return nil, handlerErr
		}
		return "response", nil
	})
	if handlerErr == nil {
		require.NoError(t, err)
		assert.Equal(t, "response", resp)
	} else {
		assert.Equal(t, handlerErr, err, "handler errors pass through unchanged")
	}

	tracer.Close()
	return rec.transactions()
}

func TestGRPCInterceptorSuccess(t *testing.T) {
	txs := invokeUnary(t, config.Default().Agent, context.Background(), "/orders.Orders/Get", nil)

	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Equal(t, "/orders.Orders/Get", tx.Name)
	assert.Equal(t, "gRPC OK", tx.Result)
	assert.Equal(t, OutcomeSuccess, tx.Outcome)
	assert.True(t, tx.Ended())
	assert.Len(t, tx.TraceID, 32)
}

func TestGRPCInterceptorHandlerError(t *testing.T) {
	handlerErr := status.Error(codes.NotFound, "no such order")
	txs := invokeUnary(t, config.Default().Agent, context.Background(), "/orders.Orders/Get", handlerErr)

	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Equal(t, "gRPC NotFound", tx.Result)
	assert.Equal(t, OutcomeFailure, tx.Outcome)
	require.Len(t, tx.Errors, 1)
}

func TestGRPCInterceptorPlainError(t *testing.T) {
	txs := invokeUnary(t, config.Default().Agent, context.Background(), "/orders.Orders/Get", errors.New("boom"))

	require.Len(t, txs, 1)
	assert.Equal(t, "gRPC Unknown", txs[0].Result)
	assert.Equal(t, OutcomeFailure, txs[0].Outcome)
}

func TestGRPCInterceptorContinuesTrace(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(),
		metadata.Pairs("traceparent", validTraceparent, "tracestate", "vendor=x"))
	txs := invokeUnary(t, config.Default().Agent, ctx, "/orders.Orders/Get", nil)

	require.Len(t, txs, 1)
	assert.Equal(t, validTraceID, txs[0].TraceID)
	assert.Equal(t, validParentID, txs[0].ParentID)
	assert.Equal(t, "vendor=x", txs[0].TraceState)
	assert.True(t, txs[0].Sampled)
}

func TestGRPCInterceptorLegacyMetadataFallback(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(),
		metadata.Pairs("x-traceparent", validTraceparent))
	txs := invokeUnary(t, config.Default().Agent, ctx, "/orders.Orders/Get", nil)

	require.Len(t, txs, 1)
	assert.Equal(t, validTraceID, txs[0].TraceID)
}

func TestGRPCInterceptorIgnoredMethod(t *testing.T) {
	cfg := config.Default().Agent
	cfg.TransactionIgnoreUrls = []string{"/grpc.health.v1.health/*"}

	txs := invokeUnary(t, cfg, context.Background(), "/grpc.health.v1.Health/Check", nil)
	assert.Empty(t, txs)
}
