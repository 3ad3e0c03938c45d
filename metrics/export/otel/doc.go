// Package otel publishes superjwt metrics through OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one counter per family with outcome, result,
// network or reason attributes, a stream hit ratio gauge, and latency bucket
// gauges keyed by an "le" attribute. A single callback reads
// [superjwt.Authority.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Mutate authority state.
package otel
