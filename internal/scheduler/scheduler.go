package scheduler

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Adapter encapsulates one scheduler's spool conventions. Exactly one
// adapter is active per run.
type Adapter interface {
	// WatchLocations returns the directories to watch non-recursively.
	WatchLocations() []string

	// Qualifies filters a raw notifier event. It returns the triggering
	// paths and true only for the single event kind that represents a
	// fully visible new job entity; every other event kind is ignored.
	Qualifies(event fsnotify.Event) ([]string, bool)

	// BuildRecord re-validates path (it may have been unlinked between
	// enqueue and dispatch) and extracts the job ID. It returns false if
	// re-validation fails.
	BuildRecord(path string) (*JobRecord, bool)
}

// Kind names a supported scheduler shape, as selected by --scheduler.
type Kind string

const (
	KindSlurm  Kind = "slurm"
	KindTorque Kind = "torque"
)

// Options configures adapter construction. FilterRegex and TorqueSubdir
// are adapter-specific: FilterRegex only affects the Slurm shape,
// TorqueSubdir only the Torque shape.
type Options struct {
	Base         string
	Cluster      string
	FilterRegex  string
	TorqueSubdir bool
}

// New builds the adapter named by kind.
func New(kind Kind, opts Options) (Adapter, error) {
	switch kind {
	case KindSlurm:
		return NewSlurm(opts.Base, opts.Cluster, opts.FilterRegex)
	case KindTorque:
		return NewTorque(opts.Base, opts.Cluster, opts.TorqueSubdir), nil
	default:
		return nil, fmt.Errorf("scheduler: unknown scheduler kind %q", kind)
	}
}
