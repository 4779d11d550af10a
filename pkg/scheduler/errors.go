package scheduler

import "errors"

var (
	ErrJobAlreadyRegistered = errors.New("scheduler: job already registered")
	ErrJobNotFound          = errors.New("scheduler: job not found")
	ErrInvalidJob           = errors.New("scheduler: job needs a name, a schedule and a function")
	ErrNoJobs               = errors.New("scheduler: no jobs registered")
	ErrJobRunning           = errors.New("scheduler: job is already running")
)
