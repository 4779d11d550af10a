package notifications

import "time"

// MetricsRecorder receives counters from the Manager.
type MetricsRecorder interface {
	// Dispatch records one dispatcher call; outcome is "success" or "failure".
	Dispatch(channel, outcome string, elapsed time.Duration)
	// Transition records a committed status change.
	Transition(status string)
	// SweepRows adds n rows to a sweep's result bucket.
	SweepRows(sweep, result string, n int)
	// EventPublished records a publish attempt; result is "success" or "failure".
	EventPublished(routingKey, result string)
}

type noopMetrics struct{}

func (noopMetrics) Dispatch(string, string, time.Duration) {}
func (noopMetrics) Transition(string)                      {}
func (noopMetrics) SweepRows(string, string, int)          {}
func (noopMetrics) EventPublished(string, string)          {}
