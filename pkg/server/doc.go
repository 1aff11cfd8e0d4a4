// Package server exposes the monitoring HTTP surface: liveness and
// readiness probes, Prometheus self-metrics, and the latest collection
// report as JSON.
package server
