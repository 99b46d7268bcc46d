// Package history records every firing of a job into a core.HistoryStorage.
//
// A Recorder is an ordinary job listener. Register it on the bridge and name
// it on the descriptors to audit:
//
//	rec := history.NewRecorder(storage.NewGormHistoryStorage(db))
//	_ = b.RegisterListener(rec)
//
//	desc, _ := descriptor.New("report", svc, "Run",
//	    descriptor.Listeners(history.DefaultName))
//
// Results are stored JSON-encoded; values that cannot be encoded or exceed
// the size limit are recorded without a result. Write failures are retried
// and then logged, never surfaced to the firing.
package history
