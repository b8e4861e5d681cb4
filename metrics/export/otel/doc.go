// Package otel publishes an Engine's counters and latency histograms as
// OpenTelemetry observable instruments. The caller owns the
// MeterProvider; one callback reads the Engine snapshot per collection.
package otel
