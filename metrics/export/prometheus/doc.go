// Package prometheus provides Prometheus collectors for svcwatch metrics.
//
// [NewPrometheusExporter] accepts an [svcwatch.Engine] and exposes an [http.Handler]
// that renders all svcwatch counters in Prometheus text exposition format.
// Counter names are prefixed svcwatch_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
