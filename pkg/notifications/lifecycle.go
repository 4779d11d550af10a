package notifications

import "fmt"

// transitions lists the status changes a row may go through.
// A retried row whose channel was disabled in the meantime ends skipped.
var transitions = map[Status]map[Status]bool{
	StatusPending: {StatusSent: true, StatusFailed: true, StatusSkipped: true},
	StatusSent:    {StatusDelivered: true},
	StatusFailed:  {StatusFailed: true, StatusSent: true, StatusSkipped: true},
}

// CanTransition reports whether a row may move from one status to another.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// CheckTransition returns ErrInvalidTransition when n cannot move to the target status.
// A failed row that used up its retries is terminal.
func CheckTransition(n Notification, to Status) error {
	if !CanTransition(n.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, n.Status, to)
	}
	if n.Status == StatusFailed && n.RetryCount >= n.MaxRetries {
		return fmt.Errorf("%w: retries exhausted (%d/%d)", ErrInvalidTransition, n.RetryCount, n.MaxRetries)
	}
	return nil
}
