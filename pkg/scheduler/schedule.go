package scheduler

import (
	"fmt"
	"time"
)

// Schedule determines when a job runs next.
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time { return from.Add(s.every) }

func (s intervalSchedule) String() string { return fmt.Sprintf("every %v", s.every) }

// Every runs a job at a fixed interval. Non-positive durations yield nil.
func Every(d time.Duration) Schedule {
	if d <= 0 {
		return nil
	}
	return intervalSchedule{every: d}
}
