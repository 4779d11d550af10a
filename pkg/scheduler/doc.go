// Package scheduler runs periodic in-process jobs, such as the notification
// sweeps.
//
//	s := scheduler.New(scheduler.WithLogger(log))
//	_ = s.AddJob("scheduled", scheduler.Every(time.Minute), func(ctx context.Context) error {
//	    _, err := manager.ProcessScheduledNotifications(ctx)
//	    return err
//	})
//	go s.Start(ctx) // returns when ctx is cancelled
//
// RunNow triggers a job synchronously, which is how tests and admin
// endpoints drive it.
package scheduler
