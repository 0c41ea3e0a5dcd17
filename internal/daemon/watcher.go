// Package daemon wires together the scheduler-specific Adapter, the
// filesystem Watcher that turns raw fsnotify events into JobRecords, the
// Processor that enforces the debounce floor and drives each record to a
// Sink, and the Supervisor that ties their lifetimes to process signals.
package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/hpc-sre/sarchive/internal/scheduler"
)

// WorkQueueSize bounds the channel between the Watchers and the
// Processor. A full queue means the archiver can't keep up with the
// rate of incoming jobs; rather than block a watcher (and risk missing
// the scheduler deleting spool entries out from under it), new records
// are dropped and logged.
const WorkQueueSize = 1024

// Watcher watches a single spool root and turns qualifying fsnotify
// events observed there into JobRecords delivered on out. One Watcher
// is spawned per Adapter.WatchLocations() entry, so that a registration
// failure on one root never silently masks the others.
type Watcher struct {
	location string
	adapter  scheduler.Adapter
	out      chan<- *scheduler.JobRecord
	logger   *slog.Logger
}

// NewWatcher builds a Watcher for a single watch location, dispatching
// qualifying events through adapter to out.
func NewWatcher(location string, adapter scheduler.Adapter, out chan<- *scheduler.JobRecord, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{location: location, adapter: adapter, out: out, logger: logger}
}

// Run registers location with a dedicated fsnotify watcher and
// dispatches qualifying events until ctx is cancelled or stop delivers
// a shutdown signal. Registration failure and any error surfaced on the
// notifier's Errors channel are both fatal: they are returned rather
// than logged-and-continued, so the Supervisor can abort the process
// instead of running with a silently unwatched spool root.
func (w *Watcher) Run(ctx context.Context, stop <-chan bool) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("daemon: create fsnotify watcher for %s: %w", w.location, err)
	}
	defer func() { _ = fsWatcher.Close() }()

	if err := fsWatcher.Add(w.location); err != nil {
		return fmt.Errorf("daemon: watch %s: %w", w.location, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case signaled, ok := <-stop:
			if !ok || signaled {
				return nil
			}

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			w.dispatch(ctx, event)

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("daemon: watcher notifier error on %s: %w", w.location, err)
		}
	}
}

// dispatch runs the event through the adapter and enqueues a JobRecord
// for every path that still qualifies at build time.
func (w *Watcher) dispatch(ctx context.Context, event fsnotify.Event) {
	paths, ok := w.adapter.Qualifies(event)
	if !ok {
		return
	}
	for _, path := range paths {
		record, ok := w.adapter.BuildRecord(path)
		if !ok {
			w.logger.Debug("job path no longer valid at build time", "path", path)
			continue
		}
		select {
		case w.out <- record:
		case <-ctx.Done():
			return
		default:
			w.logger.Error("work queue full, dropping job", "job_id", record.JobID, "path", path)
		}
	}
}
