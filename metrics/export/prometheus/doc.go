// Package prometheus provides Prometheus collectors for guardkit metrics.
//
// [NewPrometheusExporter] accepts a [guardkit.Pipeline] and exposes an [http.Handler]
// that renders all guardkit counters and histograms in Prometheus text exposition format.
// Counter names are prefixed guardkit_*_total; the single histogram is
// guardkit_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate pipeline state.
package prometheus
