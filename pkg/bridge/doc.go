// Package bridge executes job descriptors when the scheduler fires them.
//
// OnFire is the only entry point. It checks that the firing carries a
// descriptor with a bound invoker, notifies listeners, calls the invoker and
// translates any failure into a single *core.JobMethodInvocationFailedError:
//
//	b := bridge.New(bridge.WithLogger(logger))
//	_ = b.RegisterListener(auditListener)
//
//	fc := &core.FiringContext{FireInstanceID: id, Descriptor: desc}
//	if err := b.OnFire(ctx, fc); err != nil {
//	    var failed *core.JobMethodInvocationFailedError
//	    if errors.As(err, &failed) {
//	        log.Printf("%s failed: %v", failed.JobKey, failed.Cause)
//	    }
//	}
//
// Subscribe to firing events with Events and release the channel with
// Unsubscribe.
package bridge
