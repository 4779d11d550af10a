// Package metrics exports notification delivery and HTTP metrics to
// Prometheus under the "notifykit" namespace. A Recorder is passed to the
// notification manager with notifications.WithMetrics and served with
// Recorder.Handler on /metrics.
package metrics
