/*
Package tracing implements the HTTP request instrumentation layer of the
agent: it intercepts inbound requests, creates a transaction for each one,
continues distributed traces from incoming traceparent headers and enriches
sampled transactions with request, response and user context.

# Overview

One transaction represents one handled request. The middleware drives a
strict per-request sequence: ignore-check, start, request enrichment,
handler invocation, error capture, finalization (naming, classification,
response and user enrichment) and End. Every step except the handler
invocation and End is individually isolated: an instrumentation failure is
logged and never changes the request's functional outcome.

# Usage

	cfg := config.LoadOrDefault()
	tracer := tracing.New(cfg.Agent, logger,
		tracing.WithMetrics(metrics),
	)
	defer tracer.Close()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))

	// gRPC server interceptor
	server := grpc.NewServer(
		grpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(tracer)),
	)

	// Naming a transaction explicitly inside a handler
	if tx := tracing.TransactionFromContext(c); tx != nil {
		tx.SetName("checkout")
	}

# Trace continuation

Incoming requests may carry a traceparent header (the unprefixed name is
checked first, the prefixed legacy name second) plus an opaque tracestate.
A valid header continues the caller's trace and inherits its sampling
decision; a missing or malformed header starts a fresh trace.

# Sampling

Unsampled transactions still get a name, duration and outcome, but no
request, response or user context. The sampling flag is fixed at creation
and checked by every enrichment step.
*/
package tracing
