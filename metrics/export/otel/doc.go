// Package otel publishes SafeHer counters and latency histograms through an
// OpenTelemetry Meter.
//
// [NewExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket. A single callback reads the
// engine snapshot on each collection. Callers own the MeterProvider.
package otel
