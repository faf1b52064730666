package tracing

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// GRPCUnaryInterceptor creates a gRPC unary server interceptor running the
// same transaction lifecycle as the HTTP middleware: trace continuation
// from metadata, error capture, outcome classification and guaranteed End.
func GRPCUnaryInterceptor(t *Tracer) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if matchesAny(t.cfg.TransactionIgnoreUrls, info.FullMethod) {
			t.ignored()
			return handler(ctx, req)
		}

		var tx *Transaction
		capture(t.logger, nil, "start transaction", func() {
			tx = t.StartTransaction(info.FullMethod, TypeRequest, grpcTraceContext(ctx, t))
		})
		if tx == nil {
			return handler(ctx, req)
		}

		resp, err := handler(ctx, req)

		capture(t.logger, tx, "classification", func() {
			if err != nil {
				tx.CaptureError(err)
				tx.Outcome = OutcomeFailure
			} else {
				tx.Outcome = OutcomeSuccess
			}
			tx.Result = "gRPC " + status.Code(err).String()
		})

		tx.End()
		t.Submit(tx)

		return resp, err
	}
}

// grpcTraceContext extracts trace continuation headers from incoming
// metadata, with the same primary/legacy ordering as HTTP.
func grpcTraceContext(ctx context.Context, t *Tracer) *TraceContext {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	header := firstValue(md, "traceparent")
	if header == "" {
		header = firstValue(md, "x-traceparent")
	}
	if header == "" {
		return nil
	}

	tc, err := ParseTraceparent(header, firstValue(md, "tracestate"))
	if err != nil {
		t.logger.Debug("discarding invalid traceparent metadata",
			zap.String("header", header),
			zap.Error(err),
		)
		return nil
	}
	return tc
}

func firstValue(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
