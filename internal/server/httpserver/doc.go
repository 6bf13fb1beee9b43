// Package httpserver provides the operational HTTP listener for memkv.
//
// It serves Prometheus metrics on /metrics plus liveness (/health) and
// readiness (/ready) probes. The listener is optional and only started
// when server.metrics.addr is set.
package httpserver
