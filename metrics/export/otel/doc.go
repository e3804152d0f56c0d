// Package otel provides OpenTelemetry metric exporter bindings for svcwatch
// counters.
//
// [NewOTelExporter] registers an Int64ObservableCounter instrument for each
// svcwatch metric. A single callback reads [svcwatch.Engine.MetricsSnapshot]
// on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider — callers supply the Meter.
//   - Mutate engine state.
package otel
