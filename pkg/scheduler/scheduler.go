package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Job is the work run on every tick of its schedule.
type Job func(ctx context.Context) error

// Scheduler runs registered jobs in-process on their schedules.
// A job never overlaps with itself: a tick that finds the previous run still
// going is skipped. Different jobs run concurrently.
type Scheduler struct {
	mu       sync.Mutex
	jobs     map[string]*entry
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

type entry struct {
	name     string
	schedule Schedule
	job      Job
	next     time.Time
	running  bool
}

// New creates a scheduler with a one-second check interval.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:     make(map[string]*entry),
		interval: time.Second,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob registers a job. Its first run happens one schedule period after
// registration.
func (s *Scheduler) AddJob(name string, schedule Schedule, job Job) error {
	if name == "" || schedule == nil || job == nil {
		return ErrInvalidJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobAlreadyRegistered, name)
	}
	s.jobs[name] = &entry{name: name, schedule: schedule, job: job, next: schedule.Next(s.now())}

	s.logger.Info("registered periodic job",
		logger.Component("scheduler"),
		slog.String("job", name),
		slog.String("schedule", schedule.String()),
	)
	return nil
}

// RemoveJob unregisters a job. A run in progress is not interrupted.
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, name)
}

// Jobs lists registered job names in sorted order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Start checks for due jobs until ctx is cancelled, then waits for running
// jobs to return. It returns ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	n := len(s.jobs)
	s.mu.Unlock()
	if n == 0 {
		return ErrNoJobs
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down", logger.Component("scheduler"))
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []*entry
	for _, e := range s.jobs {
		if e.running || now.Before(e.next) {
			continue
		}
		e.running = true
		e.next = e.schedule.Next(now)
		due = append(due, e)
	}
	s.mu.Unlock()

	for _, e := range due {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_ = s.run(ctx, e)
		}()
	}
}

// RunNow runs the named job synchronously and returns its error.
// It fails with ErrJobRunning when the job is already in progress.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if e.running {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	e.running = true
	s.mu.Unlock()

	return s.run(ctx, e)
}

func (s *Scheduler) run(ctx context.Context, e *entry) (err error) {
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", e.name, r)
		}

		s.mu.Lock()
		e.running = false
		s.mu.Unlock()

		attrs := []slog.Attr{
			logger.Component("scheduler"),
			slog.String("job", e.name),
			logger.Duration(s.now().Sub(start)),
		}
		switch {
		case err == nil:
			s.logger.LogAttrs(ctx, slog.LevelDebug, "job finished", attrs...)
		case errors.Is(err, context.Canceled):
			s.logger.LogAttrs(ctx, slog.LevelInfo, "job cancelled", attrs...)
		default:
			s.logger.LogAttrs(ctx, slog.LevelError, "job failed", append(attrs, logger.Error(err))...)
		}
	}()

	return e.job(ctx)
}
