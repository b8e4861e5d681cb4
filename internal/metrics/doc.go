// Package metrics holds the engine's counters and latency histograms.
//
// Counters sit in cache-line padded slots and are updated with sync/atomic,
// so the write path neither locks nor allocates. Histograms use eight fixed
// buckets. Exporters in metrics/export read Snapshot values; nothing here
// performs I/O.
package metrics
