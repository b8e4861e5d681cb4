// Package prometheus renders an Engine's counters and latency histograms
// in the Prometheus text exposition format. Mount Handler wherever the
// scraper expects it; nothing is registered globally.
package prometheus
