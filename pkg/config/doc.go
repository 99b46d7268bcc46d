// Package config loads job definitions from YAML and registers them on a
// scheduler.
//
//	jobs:
//	  - id: cleanup
//	    target: janitor
//	    method: Purge
//	    arguments: [30]
//	    concurrent: false
//	    listeners: [history]
//	    triggers:
//	      - name: nightly
//	        cron: "0 3 * * *"
//	      - name: hourly
//	        every: 1h
//
// Targets are referenced by name and supplied by the caller:
//
//	f, err := config.Load("jobs.yaml")
//	descs, err := f.Register(sched, map[string]any{"janitor": j})
//
// Jobs without triggers are stored on the scheduler for manual firing and
// must be durable.
package config
