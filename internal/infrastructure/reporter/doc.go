// Package reporter delivers ended transactions to a trace collector.
//
// The reporter is registered as a processor on the tracer and runs on the
// tracer's collector goroutine. Payloads are JSON-encoded with sonic,
// gzip-compressed and POSTed with retry/backoff. A token-bucket rate
// limiter drops transactions rather than backing pressure into request
// handling, and a circuit breaker stops deliveries entirely while the
// collector is down.
package reporter
