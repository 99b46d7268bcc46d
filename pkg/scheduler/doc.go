// Package scheduler fires job descriptors on cron schedules through the bridge.
//
// It wraps robfig/cron. Every firing gets a fresh fire instance ID and is
// handed to a Firer, normally a *bridge.Bridge:
//
//	b := bridge.New()
//	s := scheduler.New(b, scheduler.WithLocation(time.UTC))
//
//	desc, _ := descriptor.New("cleanup", svc, "Purge")
//	_ = s.ScheduleCron(desc, "nightly", "0 3 * * *")
//	_ = s.Start(ctx)
//	defer s.Stop(context.Background())
//
// Descriptors built with descriptor.Concurrent(false) never run two firings
// at once, whichever triggers fire them. A firing that fails with a fatal
// error (see core.IsFatal) unschedules all triggers of its descriptor; other
// failures are logged and the triggers keep firing.
package scheduler
