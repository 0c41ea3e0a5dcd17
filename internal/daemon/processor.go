package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpc-sre/sarchive/internal/scheduler"
	"github.com/hpc-sre/sarchive/internal/sink"
)

// DebounceFloor is the minimum time a JobRecord must sit in the work
// queue before its job info is read. The scheduler creates the job
// directory (or script file) slightly before it finishes writing every
// file inside it; waiting out this floor avoids reading a partially
// written spool entry on the common path, on top of the per-file
// race-window poll the scheduler adapters already apply.
const DebounceFloor = 2 * time.Second

// ProcessorConfig configures a Processor.
type ProcessorConfig struct {
	// DebounceFloor overrides DebounceFloor; zero selects the default.
	DebounceFloor time.Duration
	// Cleanup selects what happens to queued-but-not-yet-processed
	// records when a shutdown signal arrives: true drains and archives
	// every one of them before exiting, false abandons them (logging
	// how many were skipped).
	Cleanup bool
}

// Processor reads each JobRecord off a work queue, waits out the
// debounce floor relative to the record's enqueue moment, reads the
// job's script and environment via the adapter-supplied strategy, and
// submits the result to a Sink.
type Processor struct {
	in     <-chan *scheduler.JobRecord
	sink   sink.Sink
	cfg    ProcessorConfig
	logger *slog.Logger
}

// NewProcessor builds a Processor consuming in and archiving to s.
func NewProcessor(in <-chan *scheduler.JobRecord, s sink.Sink, cfg ProcessorConfig, logger *slog.Logger) *Processor {
	if cfg.DebounceFloor <= 0 {
		cfg.DebounceFloor = DebounceFloor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{in: in, sink: s, cfg: cfg, logger: logger}
}

// Run drives records to completion until ctx is cancelled or stop
// delivers a shutdown signal. On shutdown, queued records are either
// drained and processed (Cleanup) or abandoned and logged.
func (p *Processor) Run(ctx context.Context, stop <-chan bool) error {
	for {
		// A shutdown signal that is already pending takes priority over
		// queued work, so it is never overtaken by another record.
		select {
		case signaled, ok := <-stop:
			if !ok || signaled {
				return p.shutdown(ctx)
			}
		default:
		}

		select {
		case <-ctx.Done():
			return nil

		case signaled, ok := <-stop:
			if !ok || signaled {
				return p.shutdown(ctx)
			}

		case record, ok := <-p.in:
			if !ok {
				return nil
			}
			p.process(ctx, record)
		}
	}
}

// shutdown implements the cleanup-drain contract: with Cleanup unset,
// any records still sitting in the queue are abandoned (the scheduler
// will eventually clean up or overwrite their spool entries itself);
// with Cleanup set, every queued record is processed to completion
// before returning.
func (p *Processor) shutdown(ctx context.Context) error {
	if !p.cfg.Cleanup {
		skipped := len(p.in)
		if skipped > 0 {
			p.logger.Warn("shutting down, abandoning queued jobs", "skipped", skipped)
		}
		return nil
	}

	for {
		select {
		case record, ok := <-p.in:
			if !ok {
				return nil
			}
			p.process(ctx, record)
		default:
			return nil
		}
	}
}

// process waits out the debounce floor, reads the job's files, and
// submits the record to the sink, logging any failure rather than
// propagating it — one bad job must never stop the archiver.
func (p *Processor) process(ctx context.Context, record *scheduler.JobRecord) {
	if remaining := p.cfg.DebounceFloor - time.Since(record.Moment); remaining > 0 {
		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}

	if err := record.ReadJobInfo(ctx); err != nil {
		p.logger.Error("read job info failed", "job_id", record.JobID, "path", record.EventPath, "err", err)
		return
	}

	if err := p.sink.Submit(ctx, record); err != nil {
		p.logger.Error("archive submission failed", "job_id", record.JobID, "err", err)
		return
	}
	p.logger.Info("archived job", "job_id", record.JobID, "cluster", record.Cluster)
}
