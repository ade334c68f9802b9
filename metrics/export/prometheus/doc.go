// Package prometheus serves SafeHer counters and latency histograms in the
// Prometheus text exposition format.
//
// [NewExporter] reads an engine snapshot on every scrape. Counter names are
// safeher_*_total. Callers mount [Exporter.Handler] themselves; nothing is
// registered globally.
package prometheus
