// Package server wires the agent into a runnable demo HTTP service:
// logging, metrics, tracer, optional collector reporting and a small set
// of instrumented routes.
package server
