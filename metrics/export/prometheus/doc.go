// Package prometheus exports goGate engine metrics through
// client_golang.
//
// [NewCollector] wraps an [goGate.Engine] as a prometheus.Collector. Each
// scrape reads one snapshot: counters are published as gogate_*_total and
// cookie decode latency as the gogate_identity_latency_seconds histogram.
// Callers either Register the collector on their own registry or mount
// [Collector.Handler], which uses a private one. The global default
// registry is never touched.
package prometheus
