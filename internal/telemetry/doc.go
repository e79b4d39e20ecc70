// Package telemetry wires OpenTelemetry tracing and metrics for jarvisd.
//
// Spans cover each classification request and every provider attempt in
// the fallback chain. When telemetry is disabled or the collector is
// unreachable, the global no-op providers are used and the service keeps
// serving requests.
package telemetry
