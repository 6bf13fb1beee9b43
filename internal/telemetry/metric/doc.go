// Package metric provides Prometheus metrics for memkv.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: registry, protocol/connection/storage metrics, HTTP handler
//   - collector.go: scrape-time collector for storage engine statistics
//
// Metrics are exposed at /metrics in Prometheus format when the metrics
// listener is enabled.
package metric
