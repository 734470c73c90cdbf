// Package observe instruments authentication decisions: a JSON structured
// logger that redacts credential fields, OpenTelemetry spans per attempt, and
// counters plus a latency histogram per strategy and outcome.
//
// It performs no I/O beyond exporter setup. The auth chain receives a
// Middleware built from an Observer; without one it uses no-op components.
package observe
