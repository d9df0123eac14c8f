// Package otel bridges goGate engine metrics into OpenTelemetry.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and,
// for the identity latency histogram, a bucket gauge carrying an "le"
// attribute plus a count gauge. A single callback reads
// [goGate.Engine.MetricsSnapshot] on each collection cycle. The caller owns
// the MeterProvider.
package otel
