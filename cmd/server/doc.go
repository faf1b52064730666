// Command server runs a demo HTTP service instrumented with the agent.
//
// Configuration comes from environment variables (see the config package),
// optionally overlaid by a YAML file passed with -config.
package main
