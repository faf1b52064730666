// Package monitoring provides Prometheus metrics for the agent.
//
// Metrics cover the transaction lifecycle (started, ended by outcome,
// ignored, dropped) and collector delivery. Each Metrics instance owns its
// registry, so tests can create collectors freely without duplicate
// registration panics.
//
// Example Usage:
//
//	metrics := monitoring.NewMetrics()
//	router.GET("/metrics", gin.WrapH(metrics.Handler()))
package monitoring
