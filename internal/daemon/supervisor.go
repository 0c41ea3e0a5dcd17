package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/hpc-sre/sarchive/internal/scheduler"
	"github.com/hpc-sre/sarchive/internal/sink"
)

// stopBroadcastSize is the capacity of the stop channel. A signal
// handler cannot safely perform a blocking channel send itself, so the
// actual OS signal is relayed through a dedicated goroutine that, once
// woken, broadcasts enough buffered values that every current and
// about-to-select consumer (one Watcher per watch location plus the
// Processor, eleven for the Slurm shape) sees
// one without the relay blocking on a slow or already-exited reader.
const stopBroadcastSize = 20

// Supervisor ties one Watcher per watch location and a Processor together behind a single
// work queue and owns the process's shutdown signal handling: SIGINT
// and SIGTERM are relayed into a broadcast stop channel rather than
// acted on directly inside the signal handler.
type Supervisor struct {
	adapter   scheduler.Adapter
	sink      sink.Sink
	cfg       ProcessorConfig
	logger    *slog.Logger
	queueSize int
	signaled  atomic.Bool
}

// NewSupervisor builds a Supervisor for adapter, archiving to s.
func NewSupervisor(adapter scheduler.Adapter, s sink.Sink, cfg ProcessorConfig, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{adapter: adapter, sink: s, cfg: cfg, logger: logger, queueSize: WorkQueueSize}
}

// WithQueueSize overrides the default work queue capacity between the
// Watcher and Processor. A size <= 0 is ignored, leaving the default.
func (s *Supervisor) WithQueueSize(size int) *Supervisor {
	if size > 0 {
		s.queueSize = size
	}
	return s
}

// Signaled reports whether Run's most recent exit was triggered by
// SIGINT/SIGTERM rather than an internal error or context cancellation.
func (s *Supervisor) Signaled() bool {
	return s.signaled.Load()
}

// Run starts one Watcher per watch location and the Processor and blocks
// until all of them exit, which happens when ctx is cancelled, a shutdown
// signal arrives, or any of them returns an error.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan *scheduler.JobRecord, s.queueSize)
	stop := make(chan bool, stopBroadcastSize)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go s.relaySignal(ctx, sigCh, stop)

	locations := s.adapter.WatchLocations()
	if len(locations) == 0 {
		return fmt.Errorf("daemon: adapter reported no watch locations")
	}
	processor := NewProcessor(queue, s.sink, s.cfg, s.logger)

	g, gctx := errgroup.WithContext(ctx)
	for _, loc := range locations {
		watcher := NewWatcher(loc, s.adapter, queue, s.logger)
		g.Go(func() error { return watcher.Run(gctx, stop) })
	}
	g.Go(func() error { return processor.Run(gctx, stop) })
	return g.Wait()
}

// relaySignal waits for a shutdown signal (or the supervisor's own
// context being cancelled some other way) and broadcasts it onto stop.
// It never touches stop from inside a signal handler's own stack —
// signal.Notify already hands the signal to us on an ordinary goroutine.
func (s *Supervisor) relaySignal(ctx context.Context, sigCh <-chan os.Signal, stop chan<- bool) {
	select {
	case <-sigCh:
	case <-ctx.Done():
		return
	}
	s.signaled.Store(true)
	s.logger.Info("shutdown signal received")
	for i := 0; i < stopBroadcastSize; i++ {
		stop <- true
	}
}
