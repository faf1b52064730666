// Package config provides agent configuration via environment variables.
//
// Configuration is loaded with envconfig struct tags and sensible defaults,
// with an optional YAML file overlay for deployments that prefer files.
//
// The AgentConfig section is treated as an immutable snapshot: the tracer
// copies it by value into every transaction it starts, so one request never
// observes two different configurations.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	tracer := tracing.New(cfg.Agent, logger)
package config
